package captcha

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
)

const challengeTTL = 5 * time.Minute

var errBadChallenge = errors.New("invalid captcha challenge")

// Challenge is a math question plus its sealed answer. The client sends
// Sealed back with the user's answer.
type Challenge struct {
	Question string `json:"question"`
	Sealed   string `json:"challenge"`
}

// SimpleValidator backs the built-in math puzzle. By default any non-empty
// answer passes; answers are compared only when checkAnswer is set.
type SimpleValidator struct {
	key         [32]byte
	checkAnswer bool
	now         func() time.Time
}

func NewSimpleValidator(secret string, checkAnswer bool) (*SimpleValidator, error) {
	v := &SimpleValidator{checkAnswer: checkAnswer, now: time.Now}
	if secret != "" {
		v.key = sha256.Sum256([]byte(secret))
		return v, nil
	}
	if _, err := rand.Read(v.key[:]); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *SimpleValidator) ChecksAnswer() bool { return v.checkAnswer }

func (v *SimpleValidator) NewChallenge() (Challenge, error) {
	a, err := randInt(1, 10)
	if err != nil {
		return Challenge{}, err
	}
	b, err := randInt(1, 10)
	if err != nil {
		return Challenge{}, err
	}
	plain := fmt.Sprintf("%d|%d", a+b, v.now().Add(challengeTTL).Unix())

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return Challenge{}, err
	}
	sealed := secretbox.Seal(nonce[:], []byte(plain), &nonce, &v.key)
	return Challenge{
		Question: fmt.Sprintf("What is %d + %d?", a, b),
		Sealed:   base64.RawURLEncoding.EncodeToString(sealed),
	}, nil
}

// Validate reports whether answer passes. Any non-empty token passes unless
// answers are checked, in which case sealed holds the expected answer.
func (v *SimpleValidator) Validate(answer, sealed string) bool {
	if answer == "" {
		return false
	}
	if !v.checkAnswer {
		return true
	}
	want, err := v.open(sealed)
	if err != nil {
		return false
	}
	return strings.TrimSpace(answer) == want
}

func (v *SimpleValidator) open(sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < 24+secretbox.Overhead {
		return "", errBadChallenge
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &v.key)
	if !ok {
		return "", errBadChallenge
	}
	answer, expRaw, found := strings.Cut(string(plain), "|")
	if !found {
		return "", errBadChallenge
	}
	exp, err := strconv.ParseInt(expRaw, 10, 64)
	if err != nil || v.now().Unix() > exp {
		return "", errBadChallenge
	}
	return answer, nil
}

func randInt(lo, hi int64) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(hi-lo+1))
	if err != nil {
		return 0, err
	}
	return n.Int64() + lo, nil
}
