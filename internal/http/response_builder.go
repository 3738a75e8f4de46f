package http

import (
	"time"

	"fanrevenue/internal/bucket"
)

type errorResponse struct {
	Error string `json:"error"`
}

// bucketSummary is a list entry without records.
type bucketSummary struct {
	CreatorID         string    `json:"creatorId"`
	DisplayName       string    `json:"displayName"`
	Year              int       `json:"year"`
	Month             int       `json:"month"`
	TotalRevenue      int64     `json:"totalRevenue"`
	NetRevenue        int64     `json:"netRevenue"`
	TotalTransactions int       `json:"totalTransactions"`
	UniqueCustomers   int       `json:"uniqueCustomers"`
	UploadedAt        time.Time `json:"uploadedAt"`
	LastModified      time.Time `json:"lastModified"`
}

func newBucketSummary(b bucket.MonthlyBucket) bucketSummary {
	return bucketSummary{
		CreatorID:         b.CreatorID,
		DisplayName:       b.DisplayName,
		Year:              b.Year,
		Month:             b.Month,
		TotalRevenue:      b.Analysis.TotalRevenue,
		NetRevenue:        b.Analysis.NetRevenue,
		TotalTransactions: b.Analysis.TotalTransactions,
		UniqueCustomers:   b.Analysis.UniqueCustomers,
		UploadedAt:        b.UploadedAt,
		LastModified:      b.LastModified,
	}
}

type listResponse struct {
	CreatorID string          `json:"creatorId"`
	Buckets   []bucketSummary `json:"buckets"`
}

func newListResponse(creatorID string, buckets []bucket.MonthlyBucket) listResponse {
	out := listResponse{CreatorID: creatorID, Buckets: make([]bucketSummary, 0, len(buckets))}
	for _, b := range buckets {
		out.Buckets = append(out.Buckets, newBucketSummary(b))
	}
	return out
}

// uploadFailure carries the in-memory bucket next to the persistence error.
type uploadFailure struct {
	Error  string               `json:"error"`
	Bucket bucket.MonthlyBucket `json:"bucket"`
}
