package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/farmline-ivr/internal/events"
	"github.com/Ananth-NQI/farmline-ivr/internal/models"
	"github.com/Ananth-NQI/farmline-ivr/internal/observability"
	"github.com/Ananth-NQI/farmline-ivr/internal/storage"
)

// Spoken prompts
const (
	promptMenu = "Welcome to Farmline. Press 1 or say price for today's crop prices. " +
		"Press 2 or say advice for farming advice. Press 3 or say weather for a weather advisory. " +
		"Press 4 or say expert to reach an agriculture expert."
	promptMenuRetry   = "Sorry, I did not understand that."
	promptMenuGiveUp  = "Sorry, we could not understand your choice. Please call again later. Goodbye."
	promptAdvice      = "Please ask your farming question after the tone."
	promptNoQuestion  = "Sorry, we did not hear your question. Please call again later. Goodbye."
	promptPIN         = "Please enter or say your six digit PIN code."
	promptPINNotFound = "Sorry, we could not find a valid six digit PIN code. Goodbye."
	promptNoLocation  = "Sorry, we could not find a location for that PIN code. Goodbye."
	promptConsent     = "Press 1 to receive this information by SMS, or any other key to skip."
	promptSMSSent     = "The message has been sent to your phone. Thank you for calling Farmline. Goodbye."
	promptSMSFailed   = "Sorry, we could not send the message. Thank you for calling Farmline. Goodbye."
	promptGoodbye     = "Thank you for calling Farmline. Goodbye."
	promptApology     = "Sorry, something went wrong. Please call again later. Goodbye."
)

// Call outcomes reported in metrics and events
const (
	OutcomeSMSSent            = "sms_sent"
	OutcomeSMSDeclined        = "sms_declined"
	OutcomeSMSFailed          = "sms_failed"
	OutcomeCompleted          = "completed"
	OutcomePINNotFound        = "pin_not_found"
	OutcomeLocationNotFound   = "location_not_found"
	OutcomeWeatherUnavailable = "weather_unavailable"
	OutcomeMenuExhausted      = "menu_exhausted"
	OutcomeNoInput            = "no_input"
	OutcomeCallerHangup       = "caller_hangup"
	OutcomeError              = "error"
)

// Provider call statuses that end a call
var finishedCallStatuses = map[string]bool{
	"completed": true,
	"busy":      true,
	"failed":    true,
	"no-answer": true,
	"canceled":  true,
}

// Content states move to their consent state once the content is spoken
var consentStates = map[models.CallState]models.CallState{
	models.StatePriceInfo:        models.StatePriceSMSConsent,
	models.StateAdvicePrompt:     models.StateAdviceSMSConsent,
	models.StateWeatherPINPrompt: models.StateWeatherSMSConsent,
	models.StateExpertHandoff:    models.StateExpertSMSConsent,
}

// Turn is one inbound voice webhook
type Turn struct {
	CallSID string
	From    string
	Digits  string
	Speech  string
}

func (t Turn) empty() bool {
	return strings.TrimSpace(t.Digits) == "" && strings.TrimSpace(t.Speech) == ""
}

// DispatcherOptions are the tunables of the call flow
type DispatcherOptions struct {
	ActionURL       string
	VoiceLanguage   string
	SpeechLanguage  string
	ExpertHelpline  string
	MaxMenuAttempts int
}

// DispatcherDeps are the collaborators of a Dispatcher.
// Weather and SMS may be nil, which disables the weather branch and SMS follow-ups.
type DispatcherDeps struct {
	Store   storage.SessionStore
	Weather WeatherProvider
	SMS     SMSSender
	Prices  *PriceBoard
	Events  events.Publisher
	Metrics *observability.Metrics
	Logger  *zap.Logger
	Clock   clockwork.Clock
}

// Dispatcher drives the per-call menu state machine
type Dispatcher struct {
	store   storage.SessionStore
	weather WeatherProvider
	sms     SMSSender
	prices  *PriceBoard
	events  events.Publisher
	metrics *observability.Metrics
	logger  *zap.Logger
	clock   clockwork.Clock
	opts    DispatcherOptions
}

// NewDispatcher creates a dispatcher
func NewDispatcher(deps DispatcherDeps, opts DispatcherOptions) *Dispatcher {
	if deps.Prices == nil {
		deps.Prices = DefaultPriceBoard()
	}
	if deps.Events == nil {
		deps.Events = events.NopPublisher{}
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if opts.ActionURL == "" {
		opts.ActionURL = "/voice"
	}
	if opts.MaxMenuAttempts < 1 {
		opts.MaxMenuAttempts = 3
	}
	return &Dispatcher{
		store:   deps.Store,
		weather: deps.Weather,
		sms:     deps.SMS,
		prices:  deps.Prices,
		events:  deps.Events,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		clock:   deps.Clock,
		opts:    opts,
	}
}

// reply is the TwiML for one turn. A non-empty outcome ends the call.
type reply struct {
	verbs   []twiml.Element
	outcome string
}

// Handle advances the call identified by turn.CallSID and returns the TwiML to send back.
// Input is always read against the session's current state.
func (d *Dispatcher) Handle(ctx context.Context, turn Turn) (string, error) {
	if turn.CallSID == "" {
		return "", errors.New("handle turn: missing CallSid")
	}

	key := models.SessionKey(turn.CallSID)
	now := d.clock.Now().UTC()

	sess, err := d.store.Get(ctx, key)
	switch {
	case errors.Is(err, storage.ErrSessionNotFound):
		sess = &models.CallSession{
			CallSID:   turn.CallSID,
			From:      turn.From,
			State:     models.StateMenu,
			CreatedAt: now,
		}
		d.logger.Info("call started", zap.String("call_sid", turn.CallSID))
	case err != nil:
		return "", fmt.Errorf("load session: %w", err)
	}
	if sess.From == "" {
		sess.From = turn.From
	}

	d.metrics.WebhookTurns.WithLabelValues(string(sess.State)).Inc()
	sess.Turns++

	var r reply
	if sess.Turns == 1 && turn.empty() {
		r = d.menu("")
	} else {
		r = d.step(ctx, sess, turn)
	}

	if r.outcome != "" {
		d.finish(ctx, sess, r.outcome)
	} else {
		sess.UpdatedAt = now
		if err := d.store.Set(ctx, key, sess, storage.SessionTTL); err != nil {
			return "", fmt.Errorf("save session: %w", err)
		}
	}

	xml, err := twiml.Voice(r.verbs)
	if err != nil {
		return "", fmt.Errorf("render twiml: %w", err)
	}
	return xml, nil
}

func (d *Dispatcher) step(ctx context.Context, sess *models.CallSession, turn Turn) reply {
	switch sess.State {
	case models.StateMenu:
		return d.handleMenu(sess, turn)
	case models.StateAdvicePrompt:
		return d.handleAdviceQuestion(sess, turn)
	case models.StateWeatherPINPrompt:
		return d.handlePIN(ctx, sess, turn)
	case models.StatePriceSMSConsent, models.StateAdviceSMSConsent,
		models.StateWeatherSMSConsent, models.StateExpertSMSConsent:
		return d.handleConsent(ctx, sess, turn)
	default:
		d.logger.Error("session in unexpected state",
			zap.String("call_sid", sess.CallSID),
			zap.String("state", string(sess.State)))
		return d.hangup(OutcomeError, promptApology)
	}
}

func (d *Dispatcher) handleMenu(sess *models.CallSession, turn Turn) reply {
	intent := ClassifyIntent(turn.Digits, turn.Speech)
	if turn.Speech != "" {
		sess.Speech = turn.Speech
	}

	switch intent {
	case IntentPriceInfo:
		sess.Branch = intent.String()
		sess.State = models.StatePriceInfo
		summary := d.prices.Summary()
		return d.deliver(sess, summary, "Farmline prices: "+summary)

	case IntentAdviceRequest:
		sess.Branch = intent.String()
		sess.State = models.StateAdvicePrompt
		return d.prompt(twiml.VoiceGather{
			Input:         "speech",
			Language:      d.opts.SpeechLanguage,
			SpeechTimeout: "auto",
			Action:        d.opts.ActionURL,
			Method:        "POST",
			InnerElements: []twiml.Element{d.say(promptAdvice)},
		})

	case IntentWeatherRequest:
		sess.Branch = intent.String()
		if d.weather == nil {
			return d.hangup(OutcomeWeatherUnavailable, AdvisoryUnavailable)
		}
		sess.State = models.StateWeatherPINPrompt
		return d.prompt(twiml.VoiceGather{
			Input:         "dtmf speech",
			NumDigits:     "6",
			FinishOnKey:   "#",
			Timeout:       "8",
			Language:      d.opts.SpeechLanguage,
			SpeechTimeout: "auto",
			Action:        d.opts.ActionURL,
			Method:        "POST",
			InnerElements: []twiml.Element{d.say(promptPIN)},
		})

	case IntentExpertHandoff:
		sess.Branch = intent.String()
		sess.State = models.StateExpertHandoff
		spoken := fmt.Sprintf("You can reach an agriculture expert at the Kisan Call Centre on %s. "+
			"An expert will also call you back shortly.", d.opts.ExpertHelpline)
		return d.deliver(sess, spoken,
			fmt.Sprintf("Farmline: Kisan Call Centre helpline %s. An expert will call you back.", d.opts.ExpertHelpline))
	}

	sess.MenuAttempts++
	if sess.MenuAttempts >= d.opts.MaxMenuAttempts {
		return d.hangup(OutcomeMenuExhausted, promptMenuGiveUp)
	}
	return d.menu(promptMenuRetry)
}

func (d *Dispatcher) handleAdviceQuestion(sess *models.CallSession, turn Turn) reply {
	question := strings.TrimSpace(turn.Speech)
	if question == "" {
		return d.hangup(OutcomeNoInput, promptNoQuestion)
	}
	sess.Speech = question
	tip := AdviceFor(question)
	return d.deliver(sess, tip, "Farmline advice: "+tip)
}

func (d *Dispatcher) handlePIN(ctx context.Context, sess *models.CallSession, turn Turn) reply {
	if turn.Speech != "" {
		sess.Speech = turn.Speech
	}

	pin, ok := ExtractPIN(turn.Digits, turn.Speech)
	if !ok {
		return d.hangup(OutcomePINNotFound, promptPINNotFound)
	}
	sess.PIN = pin
	log := d.logger.With(zap.String("call_sid", sess.CallSID), zap.String("pin", pin))

	loc, err := d.weather.Geocode(ctx, pin)
	if err != nil {
		if errors.Is(err, ErrLocationNotFound) {
			return d.hangup(OutcomeLocationNotFound, promptNoLocation)
		}
		log.Warn("geocode failed", zap.Error(err))
		return d.hangup(OutcomeWeatherUnavailable, AdvisoryUnavailable)
	}

	snapshot, err := d.weather.CurrentWeather(ctx, loc.Lat, loc.Lon)
	if err != nil {
		log.Warn("weather fetch failed", zap.Error(err))
		return d.hangup(OutcomeWeatherUnavailable, AdvisoryUnavailable)
	}
	if snapshot.Place == "" {
		snapshot.Place = loc.Name
	}
	sess.Weather = snapshot

	advisory := GenerateAdvisory(snapshot)
	return d.deliver(sess, advisory, fmt.Sprintf("Farmline weather for PIN %s: %s", pin, advisory))
}

func (d *Dispatcher) handleConsent(ctx context.Context, sess *models.CallSession, turn Turn) reply {
	if strings.TrimSpace(turn.Digits) != "1" {
		return d.hangup(OutcomeSMSDeclined, promptGoodbye)
	}

	if err := d.sendSMS(ctx, sess); err != nil {
		d.logger.Warn("follow-up sms failed",
			zap.String("call_sid", sess.CallSID),
			zap.Error(err))
		return d.hangup(OutcomeSMSFailed, promptSMSFailed)
	}
	return d.hangup(OutcomeSMSSent, promptSMSSent)
}

func (d *Dispatcher) sendSMS(ctx context.Context, sess *models.CallSession) error {
	if d.sms == nil {
		return ErrSMSDisabled
	}
	if sess.From == "" {
		return errors.New("caller number unknown")
	}
	if sess.SMSBody == "" {
		return errors.New("nothing to send")
	}
	return d.sms.SendSMS(ctx, sess.From, sess.SMSBody)
}

// deliver speaks content and, when SMS is available, asks for consent to text it
func (d *Dispatcher) deliver(sess *models.CallSession, spoken, smsBody string) reply {
	if d.sms == nil {
		return d.hangup(OutcomeCompleted, spoken, promptGoodbye)
	}

	sess.SMSBody = smsBody
	sess.State = consentStates[sess.State]
	return d.prompt(twiml.VoiceGather{
		Input:         "dtmf",
		NumDigits:     "1",
		Timeout:       "6",
		Action:        d.opts.ActionURL,
		Method:        "POST",
		InnerElements: []twiml.Element{d.say(spoken), d.say(promptConsent)},
	})
}

func (d *Dispatcher) menu(preamble string) reply {
	says := []twiml.Element{}
	if preamble != "" {
		says = append(says, d.say(preamble))
	}
	says = append(says, d.say(promptMenu))
	return d.prompt(twiml.VoiceGather{
		Input:         "dtmf speech",
		NumDigits:     "1",
		Timeout:       "6",
		Language:      d.opts.SpeechLanguage,
		SpeechTimeout: "auto",
		Action:        d.opts.ActionURL,
		Method:        "POST",
		InnerElements: says,
	})
}

// prompt gathers input and posts back to the action URL even when the caller stays silent
func (d *Dispatcher) prompt(g twiml.VoiceGather) reply {
	return reply{verbs: []twiml.Element{
		&g,
		&twiml.VoiceRedirect{Url: d.opts.ActionURL, Method: "POST"},
	}}
}

func (d *Dispatcher) hangup(outcome string, lines ...string) reply {
	verbs := make([]twiml.Element, 0, len(lines)+1)
	for _, line := range lines {
		verbs = append(verbs, d.say(line))
	}
	verbs = append(verbs, &twiml.VoiceHangup{})
	return reply{verbs: verbs, outcome: outcome}
}

func (d *Dispatcher) say(text string) *twiml.VoiceSay {
	return &twiml.VoiceSay{Message: text, Language: d.opts.VoiceLanguage}
}

// finish deletes the session and reports the outcome
func (d *Dispatcher) finish(ctx context.Context, sess *models.CallSession, outcome string) {
	sess.State = models.StateTerminal
	if err := d.store.Delete(ctx, models.SessionKey(sess.CallSID)); err != nil {
		d.logger.Error("delete session failed",
			zap.String("call_sid", sess.CallSID),
			zap.Error(err))
	}

	branch := sess.Branch
	if branch == "" {
		branch = "none"
	}
	d.metrics.CallOutcomes.WithLabelValues(branch, outcome).Inc()
	d.logger.Info("call finished",
		zap.String("call_sid", sess.CallSID),
		zap.String("branch", branch),
		zap.String("outcome", outcome),
		zap.Int("turns", sess.Turns))

	event := events.CallEvent{
		CallSID:    sess.CallSID,
		From:       sess.From,
		Branch:     sess.Branch,
		Outcome:    outcome,
		PIN:        sess.PIN,
		Turns:      sess.Turns,
		OccurredAt: d.clock.Now().UTC(),
	}
	if err := d.events.Publish(ctx, event); err != nil {
		d.logger.Warn("publish call event failed",
			zap.String("call_sid", sess.CallSID),
			zap.Error(err))
	}
}

// EndCall handles a provider status callback. Finished calls have their session removed.
func (d *Dispatcher) EndCall(ctx context.Context, callSID, status string) error {
	if !finishedCallStatuses[status] {
		return nil
	}

	sess, err := d.store.Get(ctx, models.SessionKey(callSID))
	if errors.Is(err, storage.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	d.finish(ctx, sess, OutcomeCallerHangup)
	return nil
}

// ApologyTwiML is the response used when a turn cannot be handled
func ApologyTwiML(language string) string {
	xml, err := twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: promptApology, Language: language},
		&twiml.VoiceHangup{},
	})
	if err != nil {
		return `<?xml version="1.0" encoding="UTF-8"?><Response><Say>` + promptApology + `</Say><Hangup/></Response>`
	}
	return xml
}
