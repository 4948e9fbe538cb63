package scanning

import (
	"fmt"
	"net/netip"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/anstrom/rangescan/internal/errors"
)

// Target is one (address, port) pair to be probed.
type Target struct {
	Addr netip.Addr
	Port uint16
}

// String returns the target in host:port form, bracketing IPv6 addresses.
func (t Target) String() string {
	return netip.AddrPortFrom(t.Addr, t.Port).String()
}

// CompareTargets orders targets by address and then by port.
func CompareTargets(a, b Target) int {
	if c := a.Addr.Compare(b.Addr); c != 0 {
		return c
	}
	switch {
	case a.Port < b.Port:
		return -1
	case a.Port > b.Port:
		return 1
	default:
		return 0
	}
}

// Result is a target that accepted a TCP connection within the timeout.
type Result struct {
	Target
	// RTT is how long the successful connect took.
	RTT time.Duration
	// Worker is the index of the worker that found the port open.
	Worker int
}

// Configuration describes one scan. It is built once and never mutated
// afterwards, so workers share it without locking.
type Configuration struct {
	Start netip.Addr `yaml:"start"`
	End   netip.Addr `yaml:"end"`
	// Ports in cross-product order. Duplicates are harmless.
	Ports []uint16 `yaml:"ports"`
	// Workers is the number of concurrent scan workers.
	Workers int `yaml:"workers" validate:"min=1"`
	// Timeout bounds every connect attempt.
	Timeout time.Duration `yaml:"timeout" validate:"gte=1ms"`
	// MaxTargets refuses scans with more targets than this (0 = unlimited).
	MaxTargets int `yaml:"max_targets" validate:"min=0"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks the numeric limits of the configuration. Range checks are
// done when the address range is built.
func (c *Configuration) Validate() error {
	err := configValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if ok := asValidationErrors(err, &verrs); !ok || len(verrs) == 0 {
		return errors.WrapConfigError(errors.CodeValidation, "invalid scan configuration", err)
	}
	fe := verrs[0]
	return errors.NewConfigFieldError(errors.CodeValidation,
		fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()),
		"scanning."+fe.Field(), fe.Value())
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

// Summary is the final report of a scan.
type Summary struct {
	ScanID    string        `json:"scan_id"`
	Range     string        `json:"range"`
	Targets   int           `json:"targets"`
	Workers   int           `json:"workers"`
	Results   []Result      `json:"results"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Count returns the number of open targets found.
func (s *Summary) Count() int {
	return len(s.Results)
}

// complete marks the scan as complete and calculates the elapsed time.
func (s *Summary) complete() {
	s.EndTime = time.Now()
	s.Elapsed = s.EndTime.Sub(s.StartTime)
}
