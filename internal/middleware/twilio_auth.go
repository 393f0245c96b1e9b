package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/twilio/twilio-go/client"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/farmline-ivr/internal/observability"
)

// maxCandidateURLs bounds how many URLs a signature is checked against
const maxCandidateURLs = 8

// SignatureConfig configures Twilio webhook validation
type SignatureConfig struct {
	AuthToken     string
	PublicBaseURL string // externally visible base URL, e.g. https://ivr.example.org
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// RequestURL describes how an inbound request was addressed
type RequestURL struct {
	TLS            bool
	Host           string
	URI            string // path and query as received
	ForwardedProto string
	ForwardedHost  string
	PublicBaseURL  string
}

// ValidateTwilioSignature validates that the webhook request is from Twilio.
// The request passes when the signature matches any candidate URL; otherwise it gets an empty 403.
func ValidateTwilioSignature(cfg SignatureConfig) fiber.Handler {
	validator := client.NewRequestValidator(cfg.AuthToken)

	return func(c *fiber.Ctx) error {
		signature := c.Get("X-Twilio-Signature")
		if signature == "" {
			return reject(c, cfg, "missing signature", nil)
		}

		params := make(map[string]string)
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			params[string(key)] = string(value)
		})

		candidates := CandidateURLs(RequestURL{
			TLS:            c.Context().IsTLS(),
			Host:           string(c.Request().Host()),
			URI:            c.OriginalURL(),
			ForwardedProto: c.Get(fiber.HeaderXForwardedProto),
			ForwardedHost:  c.Get(fiber.HeaderXForwardedHost),
			PublicBaseURL:  cfg.PublicBaseURL,
		})
		for _, u := range candidates {
			if validator.Validate(u, params, signature) {
				return c.Next()
			}
		}
		return reject(c, cfg, "invalid signature", candidates)
	}
}

func reject(c *fiber.Ctx, cfg SignatureConfig, reason string, candidates []string) error {
	cfg.Metrics.SignatureRejections.Inc()
	cfg.Logger.Warn("rejected webhook",
		zap.String("reason", reason),
		zap.String("path", c.Path()),
		zap.String("ip", c.IP()))
	if len(candidates) > 0 {
		cfg.Logger.Debug("signature candidates", zap.Strings("urls", candidates))
	}
	c.Status(fiber.StatusForbidden)
	return nil
}

// CandidateURLs lists the URLs Twilio may have signed, most likely first.
// Proxies rewrite scheme and host, so the configured public URL and forwarded headers
// come before the raw URL, followed by scheme and trailing slash variants.
func CandidateURLs(r RequestURL) []string {
	uri := r.URI
	if uri == "" {
		uri = "/"
	} else if !strings.HasPrefix(uri, "/") {
		uri = "/" + uri
	}

	scheme := "http"
	if r.TLS {
		scheme = "https"
	}

	var primary []string
	if base := strings.TrimRight(strings.TrimSpace(r.PublicBaseURL), "/"); base != "" {
		primary = append(primary, base+uri)
	}
	if r.ForwardedProto != "" || r.ForwardedHost != "" {
		proto := firstValue(r.ForwardedProto)
		if proto == "" {
			proto = scheme
		}
		host := firstValue(r.ForwardedHost)
		if host == "" {
			host = r.Host
		}
		primary = append(primary, strings.ToLower(proto)+"://"+host+uri)
	}
	if r.Host != "" {
		primary = append(primary, scheme+"://"+r.Host+uri)
	}

	out := make([]string, 0, maxCandidateURLs)
	seen := make(map[string]bool)
	add := func(u string) {
		if len(out) < maxCandidateURLs && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}

	for _, u := range primary {
		add(u)
	}
	for _, u := range primary {
		flipped := flipScheme(u)
		add(flipped)
		add(toggleTrailingSlash(u))
		add(toggleTrailingSlash(flipped))
	}
	return out
}

// firstValue takes the client-most entry of a comma separated forwarded header
func firstValue(header string) string {
	first, _, _ := strings.Cut(header, ",")
	return strings.TrimSpace(first)
}

func flipScheme(u string) string {
	switch {
	case strings.HasPrefix(u, "https://"):
		return "http://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

func toggleTrailingSlash(u string) string {
	path, query, hasQuery := strings.Cut(u, "?")
	if strings.HasSuffix(path, "/") && !strings.HasSuffix(path, "://") {
		path = strings.TrimSuffix(path, "/")
	} else {
		path += "/"
	}
	if hasQuery {
		return path + "?" + query
	}
	return path
}
