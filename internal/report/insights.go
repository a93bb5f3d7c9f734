package report

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/genai"
)

// FallbackInsights is used whenever the text-generation call or its output
// parsing fails. The report is never blocked on the external dependency.
var FallbackInsights = []string{
	"Your highest expense category this month might need attention.",
	"Consider setting up a budget for better financial management.",
	"Track your recurring expenses to identify potential savings.",
}

// TextGenerator produces raw model text for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenAIClient is the TextGenerator backed by the GenAI API. One client is
// created at process start and shared.
type GenAIClient struct {
	client *genai.Client
	model  string
}

// NewGenAIClient creates the shared generative-text client. The API key is
// taken from the environment by the SDK.
func NewGenAIClient(ctx context.Context, model string) (*GenAIClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("report: create genai client: %w", err)
	}
	return &GenAIClient{client: client, model: model}, nil
}

// Generate implements TextGenerator.
func (c *GenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("report: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("report: empty response from model")
	}
	return text, nil
}

// GenerateInsights asks the text generator for three short insights about
// the month's stats. Any failure, including malformed model output, yields
// the static fallback list.
func GenerateInsights(ctx context.Context, gen TextGenerator, stats MonthlyStats, monthName string) []string {
	if gen == nil {
		return FallbackInsights
	}

	raw, err := gen.Generate(ctx, buildInsightsPrompt(stats, monthName))
	if err != nil {
		return FallbackInsights
	}

	insights, err := parseInsights(raw)
	if err != nil {
		return FallbackInsights
	}
	return insights
}

func buildInsightsPrompt(stats MonthlyStats, monthName string) string {
	categories := make([]string, 0, len(stats.ByCategory))
	for cat := range stats.ByCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	var b strings.Builder
	b.WriteString("Analyze this financial data and provide 3 concise, actionable insights.\n")
	b.WriteString("Focus on spending patterns and practical advice.\n")
	b.WriteString("Keep it friendly and conversational.\n\n")
	fmt.Fprintf(&b, "Financial Data for %s:\n", monthName)
	fmt.Fprintf(&b, "- Total Income: $%s\n", stats.TotalIncome.StringFixed(2))
	fmt.Fprintf(&b, "- Total Expenses: $%s\n", stats.TotalExpenses.StringFixed(2))
	fmt.Fprintf(&b, "- Net Income: $%s\n", stats.NetIncome().StringFixed(2))
	b.WriteString("- Expense Categories: ")
	for i, cat := range categories {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: $%s", cat, stats.ByCategory[cat].StringFixed(2))
	}
	b.WriteString("\n\n")
	b.WriteString("Format the response as a JSON array of strings, like this:\n")
	b.WriteString(`["insight 1", "insight 2", "insight 3"]`)
	b.WriteString("\nReturn ONLY valid raw JSON. Do NOT wrap the response in code fences.\n")
	return b.String()
}

// parseInsights decodes the model output, tolerating Markdown code fences
// and stray text around the JSON array.
func parseInsights(raw string) ([]string, error) {
	clean := cleanModelJSON(raw)

	var insights []string
	if err := json.Unmarshal([]byte(clean), &insights); err != nil {
		return nil, fmt.Errorf("report: unmarshal insights: %w", err)
	}
	if len(insights) == 0 {
		return nil, fmt.Errorf("report: model returned no insights")
	}
	return insights, nil
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	// Remove trailing ``` if present.
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Extra safety: if there's still junk around the JSON array,
	// keep only from the first '[' to the last ']'.
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
