package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdviceFor(t *testing.T) {
	tests := []struct {
		question string
		want     string
	}{
		{"how do I control PESTS in cotton", farmingTips[0].tip},
		{"मेरी फसल में कीट लग गए हैं", farmingTips[0].tip},
		{"leaf blight on potato", farmingTips[1].tip},
		{"when should I put urea", farmingTips[2].tip},
		{"गेहूं में खाद कब डालें", farmingTips[2].tip},
		{"how much water for paddy", farmingTips[3].tip},
		{"बीज कौन सा लें", farmingTips[4].tip},
		{"", defaultFarmingTip},
		{"tell me something", defaultFarmingTip},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, AdviceFor(tt.question))
		})
	}
}
