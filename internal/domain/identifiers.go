package domain

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

var (
	idRandMu sync.Mutex
	idRand   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func randBase36(n int) string {
	idRandMu.Lock()
	defer idRandMu.Unlock()
	b := make([]byte, n)
	for i := range b {
		b[i] = base36Alphabet[idRand.Intn(len(base36Alphabet))]
	}
	return string(b)
}

// NewRollNumber formats a roll number as
// {3-letter exam-type prefix, uppercase}-{academic year}-{5-digit sequence},
// e.g. "ANN-2025-00001".
func NewRollNumber(examType ExamType, year string, seq int) string {
	prefix := string(examType)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return fmt.Sprintf("%s-%s-%05d", strings.ToUpper(prefix), year, seq)
}

// NewCertificateID mints a globally unique certificate identifier:
// CERT-{base36 millisecond timestamp}-{6 base36 chars}, all uppercase.
func NewCertificateID(now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 36)
	return fmt.Sprintf("CERT-%s-%s", strings.ToUpper(ts), strings.ToUpper(randBase36(6)))
}

// NewVerificationCode mints the opaque 8-character public token attached to
// a result summary.
func NewVerificationCode() string {
	return strings.ToUpper(randBase36(8))
}

// NewBoardRegID mints the permanent student identifier issued at enrollment:
// EBRR-{year}-{school registration no}-{4 base36 chars}.
func NewBoardRegID(schoolRegNo string, year int) string {
	return fmt.Sprintf("EBRR-%d-%s-%s", year, schoolRegNo, strings.ToUpper(randBase36(4)))
}
