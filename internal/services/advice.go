package services

import "strings"

type farmingTip struct {
	keywords []string
	tip      string
}

// Checked in order; the first topic with a matching keyword wins.
var farmingTips = []farmingTip{
	{
		keywords: []string{"pest", "insect", "keeda", "कीट", "कीड़े", "कीडे"},
		tip:      "For pests, inspect the underside of leaves every week and use neem based spray before chemical pesticides.",
	},
	{
		keywords: []string{"disease", "fungus", "blight", "रोग", "बीमारी", "फफूंद"},
		tip:      "For crop disease, remove infected plants, avoid overhead watering and consult your Krishi Vigyan Kendra for the right fungicide.",
	},
	{
		keywords: []string{"fertilizer", "fertiliser", "urea", "dap", "खाद", "यूरिया"},
		tip:      "Apply fertilizer based on a soil test. Split urea doses and do not apply before heavy rain.",
	},
	{
		keywords: []string{"irrigation", "water", "पानी", "सिंचाई"},
		tip:      "Irrigate early in the morning or in the evening. Drip irrigation saves water for vegetables and orchards.",
	},
	{
		keywords: []string{"seed", "sowing", "बीज", "बुवाई"},
		tip:      "Use certified seed, treat it before sowing and follow the recommended spacing for your crop.",
	},
	{
		keywords: []string{"soil", "मिट्टी"},
		tip:      "Get your soil tested through the Soil Health Card scheme and add organic manure every season.",
	},
}

const defaultFarmingTip = "Keep records of sowing, inputs and yields, and contact your local agriculture officer for advice specific to your crop."

// AdviceFor picks a spoken farming tip for the caller's question
func AdviceFor(question string) string {
	q := strings.ToLower(question)
	for _, t := range farmingTips {
		for _, kw := range t.keywords {
			if strings.Contains(q, kw) {
				return t.tip
			}
		}
	}
	return defaultFarmingTip
}
