package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"ebrr-results-service/internal/domain"
)

func TestLookupCacheCachesFoundResults(t *testing.T) {
	mr, client := newTestClient(t)
	defer mr.Close()

	inner := &countingLookup{
		byRoll: map[string]*domain.ResultView{
			"SSC-2025-00001": {StudentName: "Rahim Uddin", RollNumber: "SSC-2025-00001", Grade: "A"},
		},
	}
	cache := NewLookupCache(client, inner, time.Minute)

	view, err := cache.SearchByRollNumber(context.Background(), "SSC-2025-00001")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if view == nil || view.StudentName != "Rahim Uddin" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if inner.rollCalls != 1 {
		t.Fatalf("expected one live call, got %d", inner.rollCalls)
	}

	// Second call must be served from redis.
	view, err = cache.SearchByRollNumber(context.Background(), "SSC-2025-00001")
	if err != nil {
		t.Fatalf("search (cached): %v", err)
	}
	if view == nil || view.Grade != "A" {
		t.Fatalf("unexpected cached view: %+v", view)
	}
	if inner.rollCalls != 1 {
		t.Fatalf("expected cache hit, live calls=%d", inner.rollCalls)
	}
	if !mr.Exists("lookup:roll:SSC-2025-00001") {
		t.Fatalf("expected redis key to be set")
	}
}

func TestLookupCacheDoesNotCacheMisses(t *testing.T) {
	mr, client := newTestClient(t)
	defer mr.Close()

	inner := &countingLookup{byRoll: map[string]*domain.ResultView{}}
	cache := NewLookupCache(client, inner, time.Minute)

	for i := 0; i < 2; i++ {
		view, err := cache.SearchByRollNumber(context.Background(), "HSC-2025-99999")
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if view != nil {
			t.Fatalf("expected nil view, got %+v", view)
		}
	}
	if inner.rollCalls != 2 {
		t.Fatalf("misses must not be cached, live calls=%d", inner.rollCalls)
	}
	if mr.Exists("lookup:roll:HSC-2025-99999") {
		t.Fatalf("miss must not leave a redis key")
	}
}

func TestLookupCachePreservesEmptySliceForKnownStudent(t *testing.T) {
	mr, client := newTestClient(t)
	defer mr.Close()

	inner := &countingLookup{
		byReg: map[string][]domain.ResultView{
			"EBRR-2025-REG123-AB12": {},
		},
	}
	cache := NewLookupCache(client, inner, time.Minute)

	views, err := cache.SearchByBoardRegID(context.Background(), "EBRR-2025-REG123-AB12")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if views == nil {
		t.Fatalf("known student must yield a non-nil slice")
	}
	if len(views) != 0 {
		t.Fatalf("expected no published results, got %d", len(views))
	}

	views, err = cache.SearchByBoardRegID(context.Background(), "EBRR-2025-MISSING-XXXX")
	if err != nil {
		t.Fatalf("search unknown: %v", err)
	}
	if views != nil {
		t.Fatalf("unknown student must yield nil, got %+v", views)
	}
	_ = mr
}

func TestLookupCacheSkipsRevokedCertificates(t *testing.T) {
	mr, client := newTestClient(t)
	defer mr.Close()

	inner := &countingLookup{
		byCert: map[string]*domain.CertificateVerification{
			"CERT-REVOKED": {Valid: false, IsRevoked: true, CertificateID: "CERT-REVOKED"},
		},
	}
	cache := NewLookupCache(client, inner, time.Minute)

	v, err := cache.VerifyCertificate(context.Background(), "CERT-REVOKED")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v == nil || !v.IsRevoked {
		t.Fatalf("unexpected verification: %+v", v)
	}
	if mr.Exists("lookup:cert:CERT-REVOKED") {
		t.Fatalf("revoked certificate must not be cached")
	}
}

type countingLookup struct {
	byRoll map[string]*domain.ResultView
	byReg  map[string][]domain.ResultView
	byCert map[string]*domain.CertificateVerification

	rollCalls int
}

func (l *countingLookup) SearchByRollNumber(ctx context.Context, rollNumber string) (*domain.ResultView, error) {
	l.rollCalls++
	return l.byRoll[rollNumber], nil
}

func (l *countingLookup) SearchByBoardRegID(ctx context.Context, boardRegID string) ([]domain.ResultView, error) {
	return l.byReg[boardRegID], nil
}

func (l *countingLookup) VerifyResult(ctx context.Context, verificationCode string) (*domain.ResultVerification, error) {
	return nil, nil
}

func (l *countingLookup) VerifyCertificate(ctx context.Context, certificateID string) (*domain.CertificateVerification, error) {
	return l.byCert[certificateID], nil
}

func (l *countingLookup) Stats(ctx context.Context) (domain.PublicStats, error) {
	return domain.PublicStats{GenderRatio: "N/A"}, nil
}

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}
