// Package plan defines the data structures of an EMI plan and computes plans
// from the raw loan inputs.
package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/iwvelando/course-emi/internal/cache"
	"github.com/iwvelando/course-emi/internal/metrics"
	"github.com/iwvelando/course-emi/pkg/datetime"
	"github.com/iwvelando/course-emi/pkg/loans"
	"github.com/iwvelando/course-emi/pkg/mathutil"
	"github.com/iwvelando/course-emi/pkg/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LoanInputs holds one snapshot of the calculator form. A nil amount is an
// empty field.
type LoanInputs struct {
	TotalFee      *int64     `json:"totalFee"`
	DownPayment   *int64     `json:"downPayment"`
	TenureMonths  int        `json:"tenureMonths"`
	AdmissionDate *time.Time `json:"admissionDate,omitempty"`
}

// RawInputs is the form as a UI submits it: amounts and the date as strings.
type RawInputs struct {
	TotalFee      string `json:"totalFee"`
	DownPayment   string `json:"downPayment"`
	TenureMonths  int    `json:"tenureMonths"`
	AdmissionDate string `json:"admissionDate"`
}

// ScheduleInfo is derived from the admission date alone.
type ScheduleInfo struct {
	BillingDay           int        `json:"billingDay"`
	FirstInstallmentDate *time.Time `json:"firstInstallmentDate,omitempty"`
}

// LoanPlan holds the computed repayment plan. InstallmentAmount and
// TotalPayable are exact and in canonical decimal form; the Rounded fields
// are what a person is shown.
type LoanPlan struct {
	LoanAmount          int64               `json:"loanAmount"`
	InstallmentAmount   decimal.Decimal     `json:"installmentAmount"`
	RoundedInstallment  int64               `json:"roundedInstallment"`
	TotalPayable        decimal.Decimal     `json:"exactTotalPayable"`
	RoundedTotalPayable int64               `json:"roundedTotalPayable"`
	TenureMonths        int                 `json:"tenureMonths"`
	Installments        []loans.Installment `json:"installments"`
}

// Result is everything derived from one LoanInputs.
type Result struct {
	Inputs     LoanInputs        `json:"inputs"`
	Validation validation.Result `json:"validation"`
	Plan       LoanPlan          `json:"plan"`
	Schedule   *ScheduleInfo     `json:"schedule,omitempty"`
}

// FromRaw parses the string form fields. Malformed amounts, dates and
// tenures are rejected here, before they reach the engine.
func FromRaw(raw RawInputs) (LoanInputs, error) {
	var in LoanInputs
	var err error

	if in.TotalFee, err = validation.ParseAmountField(raw.TotalFee); err != nil {
		return LoanInputs{}, fmt.Errorf("total fee: %w", err)
	}
	if in.DownPayment, err = validation.ParseAmountField(raw.DownPayment); err != nil {
		return LoanInputs{}, fmt.Errorf("down payment: %w", err)
	}
	if in.TenureMonths, err = validation.ValidateTenure(raw.TenureMonths); err != nil {
		return LoanInputs{}, err
	}
	if in.AdmissionDate, err = validation.ParseAdmissionDate(raw.AdmissionDate); err != nil {
		return LoanInputs{}, err
	}
	return in, nil
}

// Clock supplies the current calendar date for plans without an admission date.
type Clock interface {
	Today() time.Time
}

// SystemClock reads the wall clock in Location (time.Local when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Today() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return datetime.DateOf(time.Now().In(loc))
}

// FixedClock always reports the same date.
type FixedClock time.Time

func (c FixedClock) Today() time.Time {
	return datetime.DateOf(time.Time(c))
}

// Engine computes plans. It holds no per-plan state.
type Engine struct {
	logger    *zap.Logger
	clock     Clock
	generator *loans.ScheduleGenerator
	cache     cache.Cache
	metrics   *metrics.Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the system clock.
func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithOverflowPolicy sets the month overflow policy used for due dates.
func WithOverflowPolicy(policy loans.OverflowPolicy) Option {
	return func(e *Engine) { e.generator = loans.NewScheduleGenerator(e.logger, policy) }
}

// WithCache memoizes results in c.
func WithCache(c cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithMetrics records computations in r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = r }
}

// NewEngine creates an Engine with a system clock and the clamp policy
// unless options say otherwise.
func NewEngine(logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{logger: logger, clock: SystemClock{}}
	e.generator = loans.NewScheduleGenerator(logger, loans.OverflowClamp)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Today returns the engine clock's date.
func (e *Engine) Today() time.Time {
	return e.clock.Today()
}

// Compute derives the full plan for in. Only an unsupported tenure is an
// error; invalid and incomplete amounts produce a plan with a zero loan.
func (e *Engine) Compute(ctx context.Context, in LoanInputs) (Result, error) {
	tenure, err := validation.ValidateTenure(in.TenureMonths)
	if err != nil {
		return Result{}, err
	}
	in.TenureMonths = tenure
	if in.AdmissionDate != nil {
		d := datetime.DateOf(*in.AdmissionDate)
		in.AdmissionDate = &d
	}

	today := e.clock.Today()
	key := e.cacheKey(in, today)

	if cached, ok := e.lookup(ctx, key); ok {
		e.metrics.PlanComputed(string(cached.Validation.State))
		return cached, nil
	}

	result, err := e.compute(in, today)
	if err != nil {
		return Result{}, err
	}

	e.store(ctx, key, result)
	e.metrics.PlanComputed(string(result.Validation.State))
	e.logger.Debug("computed plan",
		zap.String("op", "plan.Compute"),
		zap.String("state", string(result.Validation.State)),
		zap.Int64("loanAmount", result.Plan.LoanAmount),
		zap.Int("tenureMonths", tenure),
	)
	return result, nil
}

func (e *Engine) compute(in LoanInputs, today time.Time) (Result, error) {
	verdict := validation.ValidateAmounts(in.TotalFee, in.DownPayment)

	var loanAmount int64
	if verdict.State == validation.StateValid {
		loanAmount = loans.CalculateLoanAmount(*in.TotalFee, *in.DownPayment)
	}

	installment := loans.CalculateInstallmentAmount(loanAmount, in.TenureMonths)
	total := loans.CalculateTotalPayable(installment, in.TenureMonths)

	var info *ScheduleInfo
	var first *time.Time
	if in.AdmissionDate != nil {
		f := e.generator.FirstInstallmentDate(*in.AdmissionDate)
		first = &f
		info = &ScheduleInfo{
			BillingDay:           loans.DeriveBillingDay(in.AdmissionDate.Day()),
			FirstInstallmentDate: first,
		}
	}

	installments, err := e.generator.GenerateSchedule(loanAmount, in.TenureMonths, first, today)
	if err != nil {
		return Result{}, fmt.Errorf("failed to generate installment schedule: %w", err)
	}

	return Result{
		Inputs:     in,
		Validation: verdict,
		Plan: LoanPlan{
			LoanAmount:          loanAmount,
			InstallmentAmount:   installment,
			RoundedInstallment:  mathutil.RoundHalfUp(installment),
			TotalPayable:        total,
			RoundedTotalPayable: mathutil.RoundHalfUp(total),
			TenureMonths:        in.TenureMonths,
			Installments:        installments,
		},
		Schedule: info,
	}, nil
}

// cacheKey identifies a computation. Today only matters without an
// admission date.
func (e *Engine) cacheKey(in LoanInputs, today time.Time) string {
	key := fmt.Sprintf("fee=%s|down=%s|tenure=%d|policy=%s",
		optionalAmount(in.TotalFee), optionalAmount(in.DownPayment), in.TenureMonths, e.generator.Policy())
	if in.AdmissionDate != nil {
		return key + "|admission=" + datetime.FormatISO(*in.AdmissionDate)
	}
	return key + "|today=" + datetime.FormatISO(today)
}

func optionalAmount(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}

func (e *Engine) lookup(ctx context.Context, key string) (Result, bool) {
	if e.cache == nil {
		return Result{}, false
	}
	data, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn("plan cache lookup failed, computing directly",
			zap.String("op", "plan.lookup"),
			zap.Error(err),
		)
		return Result{}, false
	}
	e.metrics.CacheLookup(ok)
	if !ok {
		return Result{}, false
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		e.logger.Warn("discarding undecodable cached plan",
			zap.String("op", "plan.lookup"),
			zap.Error(err),
		)
		return Result{}, false
	}
	return result, true
}

func (e *Engine) store(ctx context.Context, key string, result Result) {
	if e.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		e.logger.Warn("failed to encode plan for cache",
			zap.String("op", "plan.store"),
			zap.Error(err),
		)
		return
	}
	if err := e.cache.Set(ctx, key, data); err != nil {
		e.logger.Warn("failed to cache plan",
			zap.String("op", "plan.store"),
			zap.Error(err),
		)
	}
}
