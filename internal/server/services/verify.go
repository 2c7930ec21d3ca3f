package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/gophcheck/internal/common"
	"github.com/dmitrijs2005/gophcheck/internal/logging"
	"github.com/dmitrijs2005/gophcheck/internal/phone"
	"github.com/dmitrijs2005/gophcheck/internal/server/models"
	"github.com/dmitrijs2005/gophcheck/internal/server/platform"
	"github.com/dmitrijs2005/gophcheck/internal/server/repositories/credentials"
)

var tracer = otel.Tracer("github.com/dmitrijs2005/gophcheck/internal/server/services")

// VerifyPolicy controls how a number list is split and sent to the
// platform. ChunkSize, MaxAttempts, AttemptTimeout and RetryDelay must be
// positive. ChunkInterval is the minimum spacing between remote calls; zero
// disables pacing.
type VerifyPolicy struct {
	ChunkSize      int
	MaxAttempts    int
	AttemptTimeout time.Duration
	RetryDelay     time.Duration
	ChunkInterval  time.Duration
}

func DefaultVerifyPolicy() VerifyPolicy {
	return VerifyPolicy{
		ChunkSize:      10,
		MaxAttempts:    3,
		AttemptTimeout: 15 * time.Second,
		RetryDelay:     time.Second,
		ChunkInterval:  time.Second,
	}
}

// ProgressFunc receives the number of finished chunks and the total.
type ProgressFunc func(done, total int)

// VerifyOptions are the per-run settings of Verify.
type VerifyOptions struct {
	Progress ProgressFunc
}

type VerifyOption func(*VerifyOptions)

// WithProgress reports progress after every chunk.
func WithProgress(fn ProgressFunc) VerifyOption {
	return func(o *VerifyOptions) { o.Progress = fn }
}

// Verifier checks number lists against the platform with the user's
// stored credential, charging the ledger per chunk.
type Verifier struct {
	dialer  platform.Dialer
	creds   credentials.Repository
	ledger  *Ledger
	revoker *Revoker
	locks   *userLocks
	policy  VerifyPolicy
	logger  logging.Logger
}

func NewVerifier(
	dialer platform.Dialer,
	creds credentials.Repository,
	ledger *Ledger,
	revoker *Revoker,
	locks *userLocks,
	policy VerifyPolicy,
	l logging.Logger,
) *Verifier {
	return &Verifier{
		dialer:  dialer,
		creds:   creds,
		ledger:  ledger,
		revoker: revoker,
		locks:   locks,
		policy:  policy,
		logger:  l.With("module", "verifier"),
	}
}

// Verify partitions raw into registered and unregistered numbers.
//
// Malformed entries are reported as unregistered with an invalid format
// tag and never reach the platform. Valid numbers beyond the remaining
// quota are returned in Skipped. Chunks are processed one at a time; a
// chunk that fails every attempt is reported unregistered and in Failed
// and is not charged. When a chunk brings the ledger to the limit the
// credential is revoked and the rest of the input is skipped.
//
// On a storage error or cancellation the partial result is returned
// together with the error.
func (v *Verifier) Verify(ctx context.Context, userID string, raw []string, opts ...VerifyOption) (*models.VerificationResult, error) {
	var o VerifyOptions
	for _, opt := range opts {
		opt(&o)
	}

	release, err := v.locks.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	runID := uuid.NewString()
	log := v.logger.With("user_id", userID, "run_id", runID)

	ctx, span := tracer.Start(ctx, "verify", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("input.size", len(raw)),
	))
	defer span.End()

	blob, err := v.creds.Load(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrNoActiveCredential
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	done, err := v.ledger.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	limit := v.ledger.Limit()
	if done >= limit {
		if err := v.revoker.Revoke(ctx, userID, "quota already exhausted"); err != nil {
			log.Error(ctx, "revocation failed", "error", err)
		}
		return nil, common.ErrQuotaExhausted
	}

	res := &models.VerificationResult{RunID: runID, ChecksDone: done, Remaining: limit - done}

	valid := make([]string, 0, len(raw))
	for _, r := range raw {
		n := phone.Normalize(r)
		if !phone.Valid(n) {
			res.Unregistered = append(res.Unregistered, models.InvalidFormat(r))
			continue
		}
		valid = append(valid, n)
	}

	allowed := min(len(valid), limit-done)
	res.Skipped = append(res.Skipped, valid[allowed:]...)
	valid = valid[:allowed]

	if len(valid) == 0 {
		log.Info(ctx, "nothing to check", "invalid", len(res.Unregistered), "skipped", len(res.Skipped))
		return res, nil
	}

	client, err := v.dialer.Dial(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTransportFailure, err)
	}
	defer v.disconnect(client, log)

	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTransportFailure, err)
	}
	authorized, err := client.IsAuthorized(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTransportFailure, err)
	}
	if !authorized {
		return nil, common.ErrCredentialExpired
	}

	chunks := phone.Chunk(valid, v.policy.ChunkSize)
	limiter := rate.NewLimiter(rate.Inf, 1)
	if v.policy.ChunkInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(v.policy.ChunkInterval), 1)
	}

	log.Info(ctx, "verification started", "valid", len(valid), "chunks", len(chunks), "checks_done", done)

	for i, chunk := range chunks {
		found, err := v.resolve(ctx, client, limiter, chunk, i, log)
		if err != nil {
			if ctx.Err() != nil {
				for _, rest := range chunks[i:] {
					res.Unregistered = append(res.Unregistered, rest...)
					res.Failed = append(res.Failed, rest...)
				}
				span.SetStatus(codes.Error, "cancelled")
				return res, ctx.Err()
			}
			log.Warn(ctx, "chunk failed", "chunk", i, "size", len(chunk), "error", err)
			res.Unregistered = append(res.Unregistered, chunk...)
			res.Failed = append(res.Failed, chunk...)
			report(o.Progress, i+1, len(chunks))
			continue
		}

		registered := make(map[string]struct{}, len(found))
		for _, n := range found {
			registered[n] = struct{}{}
		}
		for _, n := range chunk {
			if _, ok := registered[n]; ok {
				res.Registered = append(res.Registered, n)
			} else {
				res.Unregistered = append(res.Unregistered, n)
			}
		}

		v.rollback(ctx, client, chunk, log)

		// The platform already answered, so the charge and a saturation
		// revoke must land even if the caller is gone.
		cctx, cancel := committed(ctx)
		total, err := v.ledger.Increment(cctx, userID, len(chunk))
		if err != nil {
			cancel()
			span.SetStatus(codes.Error, "ledger")
			return res, fmt.Errorf("%w: %w", common.ErrorInternal, err)
		}
		res.ChecksDone = total
		res.Remaining = max(0, limit-total)
		report(o.Progress, i+1, len(chunks))

		if total >= limit {
			if err := v.revoker.Revoke(cctx, userID, "quota exhausted"); err != nil {
				log.Error(ctx, "revocation failed", "error", err)
			}
			cancel()
			res.Revoked = true
			for _, rest := range chunks[i+1:] {
				res.Skipped = append(res.Skipped, rest...)
			}
			break
		}
		cancel()
	}

	span.SetAttributes(
		attribute.Int("registered", len(res.Registered)),
		attribute.Int("failed", len(res.Failed)),
		attribute.Bool("revoked", res.Revoked),
	)
	log.Info(ctx, "verification finished",
		"registered", len(res.Registered),
		"unregistered", len(res.Unregistered),
		"failed", len(res.Failed),
		"skipped", len(res.Skipped),
		"checks_done", res.ChecksDone,
		"revoked", res.Revoked,
	)
	return res, nil
}

func report(fn ProgressFunc, done, total int) {
	if fn != nil {
		fn(done, total)
	}
}

// resolve runs one chunk with bounded retries. Each attempt waits for the
// pacing limiter and gets its own deadline.
func (v *Verifier) resolve(ctx context.Context, client platform.Client, limiter *rate.Limiter, chunk []string, idx int, log logging.Logger) ([]string, error) {
	var (
		found   []string
		attempt int
	)

	backoff := retry.WithMaxRetries(uint64(v.policy.MaxAttempts-1), retry.NewConstant(v.policy.RetryDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		actx, span := tracer.Start(ctx, "resolve_batch", trace.WithAttributes(
			attribute.Int("chunk", idx),
			attribute.Int("attempt", attempt),
			attribute.Int("size", len(chunk)),
		))
		defer span.End()

		actx, cancel := context.WithTimeout(actx, v.policy.AttemptTimeout)
		defer cancel()

		res, err := client.ResolveBatch(actx, chunk)
		if err == nil {
			found = res
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if errors.Is(actx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", common.ErrTimeoutExceeded, err)
		} else {
			err = fmt.Errorf("%w: %v", common.ErrTransportFailure, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "attempt failed")
		log.Debug(ctx, "resolve attempt failed", "chunk", idx, "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})

	return found, err
}

// committed detaches ctx from the caller's cancellation for writes that
// follow a successful remote call. The write is still bounded.
func committed(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
}

func (v *Verifier) rollback(ctx context.Context, client platform.Client, chunk []string, log logging.Logger) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.policy.AttemptTimeout)
	defer cancel()
	if err := client.RollbackBatch(rctx, chunk); err != nil {
		log.Warn(ctx, "contact rollback failed", "error", err)
	}
}

func (v *Verifier) disconnect(client platform.Client, log logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Warn(ctx, "platform disconnect failed", "error", err)
	}
}
