package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ebrr-results-service/internal/domain"
)

// CertificateService issues and revokes certificates. Issuance never
// snapshots student or school names; public verification resolves those live
// so later renames are reflected.
type CertificateService struct {
	gate          *RoleGate
	certificates  CertificateRepository
	sessions      SessionRepository
	refs          ReferenceRepository
	audit         *AuditRecorder
	verifyBaseURL string
	now           func() time.Time
}

func NewCertificateService(gate *RoleGate, certificates CertificateRepository, sessions SessionRepository, refs ReferenceRepository, audit *AuditRecorder, verifyBaseURL string) *CertificateService {
	if verifyBaseURL == "" {
		verifyBaseURL = "https://ebrr.edu/verify"
	}
	return &CertificateService{
		gate:          gate,
		certificates:  certificates,
		sessions:      sessions,
		refs:          refs,
		audit:         audit,
		verifyBaseURL: verifyBaseURL,
		now:           time.Now,
	}
}

// Issue creates a new certificate with a fresh certificate ID. Multiple
// certificates of different (or even the same) type may exist for one
// student + session; each gets its own identifier.
func (s *CertificateService) Issue(ctx context.Context, studentID, examSessionID string, typ domain.CertificateType) (domain.Certificate, error) {
	actor, err := s.gate.Require(ctx, domain.OpIssueCertificate)
	if err != nil {
		return domain.Certificate{}, err
	}
	if !domain.ValidCertificateType(typ) {
		return domain.Certificate{}, fmt.Errorf("%q: %w", typ, domain.ErrInvalidCertificateType)
	}
	if _, err := s.refs.GetStudent(ctx, studentID); err != nil {
		return domain.Certificate{}, err
	}
	if _, err := s.sessions.GetSession(ctx, examSessionID); err != nil {
		return domain.Certificate{}, err
	}

	now := s.now().UTC()
	certificateID := domain.NewCertificateID(now)
	cert, err := s.certificates.CreateCertificate(ctx, domain.Certificate{
		ID:            uuid.NewString(),
		StudentID:     studentID,
		ExamSessionID: examSessionID,
		CertificateID: certificateID,
		QRCode:        s.verifyBaseURL + "/" + certificateID,
		Type:          typ,
		IssuedBy:      actor.UserID,
		IssuedAt:      now,
		IsRevoked:     false,
	})
	if err != nil {
		return domain.Certificate{}, err
	}
	s.audit.Record(actor, "generate_certificate", "certificates", cert.ID, string(typ))
	return cert, nil
}

// Revoke flips the certificate to revoked. Revocation is terminal: revoking
// an already revoked certificate is a no-op, not an error.
func (s *CertificateService) Revoke(ctx context.Context, id string) error {
	actor, err := s.gate.Require(ctx, domain.OpRevokeCertificate)
	if err != nil {
		return err
	}
	cert, err := s.certificates.GetCertificate(ctx, id)
	if err != nil {
		return err
	}
	if cert.IsRevoked {
		return nil
	}
	if err := s.certificates.SetCertificateRevoked(ctx, id); err != nil {
		return err
	}
	s.audit.Record(actor, "revoke_certificate", "certificates", id, "")
	return nil
}

// List returns certificates newest first, optionally narrowed to a student.
func (s *CertificateService) List(ctx context.Context, studentID string) ([]domain.Certificate, error) {
	if _, err := s.gate.Require(ctx, domain.OpListCertificates); err != nil {
		return nil, err
	}
	return s.certificates.ListCertificates(ctx, studentID)
}
