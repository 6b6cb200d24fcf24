package cost

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// ModelPricing represents the price of a chat completion model
type ModelPricing struct {
	Model             string
	CostPer1KTokens   float64 // USD per 1K tokens, input and output blended
	MaxRequestsPerMin int
}

// PricingTable contains the known chat models behind the proxy
var PricingTable = map[string]ModelPricing{
	"deepseek-chat": {
		Model:             "deepseek-chat",
		CostPer1KTokens:   0.002,
		MaxRequestsPerMin: 60,
	},
	"gemini-flash-lite-latest": {
		Model:             "gemini-flash-lite-latest",
		CostPer1KTokens:   0.0004,
		MaxRequestsPerMin: 1000,
	},
}

// DefaultModel is used when a model is missing from PricingTable
const DefaultModel = "deepseek-chat"

// TopicExpansionFactor approximates how many characters of article one query character produces.
const TopicExpansionFactor = 100

// EstimateTokenCount estimates the tokens consumed by generating an article:
// the prompt itself plus the expected output, derived from the topic length.
// One token is taken as 4 characters.
func EstimateTokenCount(prompt, topic string) int {
	promptTokens := int(math.Ceil(float64(utf8.RuneCountInString(prompt)) / 4))
	outputTokens := int(math.Ceil(float64(utf8.RuneCountInString(topic)*TopicExpansionFactor) / 4))
	return promptTokens + outputTokens
}

// EstimateMessageTokens is the coarse check the proxy applies to incoming chat bodies.
func EstimateMessageTokens(text string) int {
	return int(math.Ceil(float64(utf8.RuneCountInString(text)) / 4))
}

// EstimateCost returns the USD cost of tokens for the given model.
func EstimateCost(tokens int, model string) float64 {
	pricing, ok := PricingTable[model]
	if !ok {
		pricing = PricingTable[DefaultModel]
	}
	return float64(tokens) / 1000 * pricing.CostPer1KTokens
}

// FormatCost renders a cost the way the metrics panel shows it.
func FormatCost(usd float64) string {
	return fmt.Sprintf("%.4f", usd)
}

// EstimateWaitTime predicts how long a generation will take, in seconds.
// The floor keeps short topics from promising an unrealistically fast answer.
func EstimateWaitTime(topic string) int {
	base := 15.0
	queryTime := math.Floor(float64(utf8.RuneCountInString(topic)) / 10)
	total := int(math.Round(base + queryTime))
	if total < 10 {
		return 10
	}
	return total
}
