package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"fanrevenue/internal/analytics"
	"fanrevenue/internal/bucket"
)

// Dashboard is everything the overview page shows for one bucket.
type Dashboard struct {
	Key          bucket.Key                 `json:"key"`
	DisplayName  string                     `json:"displayName"`
	UploadedAt   time.Time                  `json:"uploadedAt"`
	LastModified time.Time                  `json:"lastModified"`
	Revenue      analytics.RevenueAnalysis  `json:"revenue"`
	Customers    analytics.CustomerAnalysis `json:"customers"`
	Calendar     analytics.Calendar         `json:"calendar"`
}

// Dashboard computes the customer analysis and the activity calendar of one
// bucket concurrently. The revenue analysis is the one cached on the bucket.
func (s *BucketService) Dashboard(ctx context.Context, creatorID string, year, month int) (Dashboard, error) {
	b, err := s.Get(ctx, creatorID, year, month)
	if err != nil {
		return Dashboard{}, err
	}
	all := s.store.ListByCreator(creatorID)

	d := Dashboard{
		Key:          b.Key(),
		DisplayName:  b.DisplayName,
		UploadedAt:   b.UploadedAt,
		LastModified: b.LastModified,
		Revenue:      b.Analysis,
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.Customers = analytics.AnalyzeCustomers(b.Records)
		return nil
	})
	g.Go(func() error {
		cal, err := analytics.AnalyzeCalendar(creatorRecords(all), year, month)
		if err != nil {
			return err
		}
		d.Calendar = cal
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
