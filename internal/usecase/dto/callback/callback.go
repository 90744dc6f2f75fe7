package callbackdto

import "time"

// MaxBatchSize - предел элементов в одном вызове batch колбэка
const MaxBatchSize = 100

type Payload struct {
	OurDealID     string         `json:"ourDealId"`
	Status        string         `json:"status,omitempty"`
	Amount        *float64       `json:"amount,omitempty"`
	PartnerDealID *string        `json:"partnerDealId,omitempty"`
	Reason        *string        `json:"reason,omitempty"`
	UpdatedAt     *time.Time     `json:"updatedAt,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type ResultStatus string

const (
	ResultAccepted ResultStatus = "accepted"
	ResultIgnored  ResultStatus = "ignored"
	ResultError    ResultStatus = "error"
)

type Result struct {
	Status    ResultStatus `json:"status"`
	OurDealID string       `json:"ourDealId"`
	Message   string       `json:"message"`
}

type BatchResult struct {
	TotalCount   int      `json:"totalCount"`
	SuccessCount int      `json:"successCount"`
	IgnoredCount int      `json:"ignoredCount"`
	ErrorCount   int      `json:"errorCount"`
	Results      []Result `json:"results"`
}

func (b *BatchResult) Add(r Result) {
	b.TotalCount++
	switch r.Status {
	case ResultAccepted:
		b.SuccessCount++
	case ResultIgnored:
		b.IgnoredCount++
	default:
		b.ErrorCount++
	}
	b.Results = append(b.Results, r)
}
