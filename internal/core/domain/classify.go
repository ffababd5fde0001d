package domain

import "strings"

// Category buckets a failure for display and retry policy.
type Category string

const (
	CategoryNetwork      Category = "network"
	CategoryRateLimit    Category = "rate-limit"
	CategoryAIProcessing Category = "ai-processing"
	CategoryFile         Category = "file"
	CategoryDatabase     Category = "database"
	CategoryUnknown      Category = "unknown"
)

// Classification is the classifier verdict for one failure.
type Classification struct {
	Category   Category
	Retryable  bool
	Suggestion string
}

type categoryRule struct {
	kind       error
	signals    []string
	category   Category
	retryable  bool
	suggestion string
}

// Rules are ordered by priority. The first matching kind wins; message
// signals are only consulted when no kind in the chain matches.
var categoryRules = []categoryRule{
	{
		kind:       ErrNetworkUnavailable,
		signals:    []string{"network", "fetch", "timeout", "connection refused", "no such host"},
		category:   CategoryNetwork,
		retryable:  true,
		suggestion: "Check your connection and retry.",
	},
	{
		kind:       ErrRateLimited,
		signals:    []string{"rate limit", "too many requests"},
		category:   CategoryRateLimit,
		retryable:  true,
		suggestion: "Wait a moment before retrying.",
	},
	{
		kind:       ErrEmbedding,
		signals:    []string{"embedding", "ollama", "qdrant", "model"},
		category:   CategoryAIProcessing,
		retryable:  true,
		suggestion: "The AI service had trouble with this file. Retry, or check that the service is running.",
	},
	{
		kind:       ErrFileInvalid,
		signals:    []string{"file", "empty", "size", "unsupported"},
		category:   CategoryFile,
		retryable:  false,
		suggestion: "This file cannot be processed. Check its format and contents.",
	},
	{
		kind:       ErrPersistence,
		signals:    []string{"database", "sql", "constraint", "postgres"},
		category:   CategoryDatabase,
		retryable:  true,
		suggestion: "Saving failed. Retry in a moment.",
	},
}

// Classify maps an error to its failure category. Typed kinds take priority
// over message content so wrapped causes keep their meaning.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Category: CategoryUnknown, Retryable: true}
	}
	for _, rule := range categoryRules {
		if IsKind(err, rule.kind) {
			return rule.classification()
		}
	}
	return ClassifyMessage(err.Error())
}

// ClassifyMessage categorizes a bare failure message by substring signals.
func ClassifyMessage(message string) Classification {
	lower := strings.ToLower(message)
	for _, rule := range categoryRules {
		for _, signal := range rule.signals {
			if strings.Contains(lower, signal) {
				return rule.classification()
			}
		}
	}
	return Classification{
		Category:   CategoryUnknown,
		Retryable:  true,
		Suggestion: "An unexpected error occurred. Retrying may help.",
	}
}

func (r categoryRule) classification() Classification {
	return Classification{Category: r.category, Retryable: r.retryable, Suggestion: r.suggestion}
}

// FailureFromError builds the item failure record for a pipeline error.
func FailureFromError(err error) *Failure {
	cls := Classify(err)
	return &Failure{
		Message:    err.Error(),
		Category:   cls.Category,
		Retryable:  cls.Retryable,
		Suggestion: cls.Suggestion,
	}
}

// FailureFromMessage builds the failure record for a submit-time rejection.
func FailureFromMessage(message string) *Failure {
	cls := ClassifyMessage(message)
	return &Failure{
		Message:    message,
		Category:   cls.Category,
		Retryable:  cls.Retryable,
		Suggestion: cls.Suggestion,
	}
}
