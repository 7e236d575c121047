// Package metrics exposes Prometheus counters for authentication outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Login outcomes used as the "outcome" label.
const (
	OutcomeSuccess      = "success"
	OutcomeFirstAccess  = "first_access"
	OutcomeInvalid      = "invalid_credentials"
	OutcomeInactive     = "inactive"
	OutcomeLocked       = "locked"
	OutcomeSessionError = "session_error"
	OutcomeError        = "error"
)

// Recorder is what the auth service reports to.
type Recorder interface {
	RecordLogin(outcome string)
	RecordLoginLatency(d time.Duration)
	RecordAccountLocked()
	RecordPasswordMigrated()
	RecordPasswordChange(success bool)
	RecordRegistration(success bool)
	RecordLogout()
}

type Collector struct {
	logins           *prometheus.CounterVec
	loginLatency     prometheus.Histogram
	accountsLocked   prometheus.Counter
	passwordMigrated prometheus.Counter
	passwordChanges  *prometheus.CounterVec
	registrations    *prometheus.CounterVec
	logouts          prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busauth_login_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		loginLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "busauth_login_duration_seconds",
			Help:    "Time spent authenticating a login request.",
			Buckets: prometheus.DefBuckets,
		}),
		accountsLocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busauth_account_locked_total",
			Help: "Accounts locked after too many failed attempts.",
		}),
		passwordMigrated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busauth_password_migrated_total",
			Help: "Legacy password hashes upgraded at login.",
		}),
		passwordChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busauth_password_change_total",
			Help: "Password change requests by result.",
		}, []string{"result"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busauth_registration_total",
			Help: "Registration requests by result.",
		}, []string{"result"}),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busauth_logout_total",
			Help: "Successful logouts.",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.loginLatency,
		c.accountsLocked,
		c.passwordMigrated,
		c.passwordChanges,
		c.registrations,
		c.logouts,
	)

	return c
}

// RegisterAuditDropped exposes the audit dispatcher's drop counter.
func RegisterAuditDropped(reg prometheus.Registerer, dropped func() uint64) {
	reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "busauth_audit_dropped_total",
		Help: "Audit entries dropped because the buffer was full.",
	}, func() float64 { return float64(dropped()) }))
}

// RegisterAuditFailed exposes the number of entries the audit sinks rejected.
func RegisterAuditFailed(reg prometheus.Registerer, failed func() uint64) {
	reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "busauth_audit_write_failures_total",
		Help: "Audit entries the sinks failed to store.",
	}, func() float64 { return float64(failed()) }))
}

func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordLoginLatency(d time.Duration) {
	c.loginLatency.Observe(d.Seconds())
}

func (c *Collector) RecordAccountLocked() {
	c.accountsLocked.Inc()
}

func (c *Collector) RecordPasswordMigrated() {
	c.passwordMigrated.Inc()
}

func (c *Collector) RecordPasswordChange(success bool) {
	c.passwordChanges.WithLabelValues(result(success)).Inc()
}

func (c *Collector) RecordRegistration(success bool) {
	c.registrations.WithLabelValues(result(success)).Inc()
}

func (c *Collector) RecordLogout() {
	c.logouts.Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordLogin(string)               {}
func (Nop) RecordLoginLatency(time.Duration) {}
func (Nop) RecordAccountLocked()             {}
func (Nop) RecordPasswordMigrated()          {}
func (Nop) RecordPasswordChange(bool)        {}
func (Nop) RecordRegistration(bool)          {}
func (Nop) RecordLogout()                    {}
