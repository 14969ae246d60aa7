// sodascan
// (C) 2024, Deutsche Telekom IT GmbH
//
// Deutsche Telekom IT GmbH and all other contributors /
// copyright owners license this file to you under the Apache
// License, Version 2.0 (the "License"); you may not use this
// file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package helper

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/caas-team/sodascan/internal/logger"
)

// RetryConfig defines how often and how fast a failed call is retried
type RetryConfig struct {
	Count int
	Delay time.Duration
}

// Effector will be the function that is called by the Retry function
type Effector func(context.Context) error

// permanentError marks an error that must not be retried
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Retry gives up immediately and returns err
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls the effector until it succeeds, the retry count is exhausted,
// the context is done or the effector returns a Permanent error.
// The delay between two calls doubles with every attempt.
func Retry(effector Effector, rc RetryConfig) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		log := logger.FromContext(ctx)

		var permanent error
		attempt := 0
		operation := func() error {
			attempt++
			err := effector(ctx)
			var perr *permanentError
			if errors.As(err, &perr) {
				permanent = perr.err
			}
			return err
		}

		b := &stopOnPermanent{
			BackOff: newBackOff(rc),
			stopped: func() bool { return permanent != nil },
		}
		err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), func(err error, delay time.Duration) {
			log.Warn("Call failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		})

		switch {
		case err == nil:
			return nil
		case permanent != nil:
			return permanent
		case ctx.Err() != nil:
			return ctx.Err()
		}
		return err
	}
}

// newBackOff returns a jitter free exponential backoff limited to the retry count
func newBackOff(rc RetryConfig) backoff.BackOff {
	if rc.Count <= 0 {
		return &backoff.StopBackOff{}
	}
	return backoff.WithMaxRetries(newExpBackOff(rc.Delay), uint64(rc.Count)) //nolint:gosec // count is positive
}

func newExpBackOff(initialDelay time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	if b.MaxInterval < initialDelay {
		b.MaxInterval = initialDelay
	}
	b.Reset()
	return b
}

// stopOnPermanent ends the backoff once a permanent error occurred
type stopOnPermanent struct {
	backoff.BackOff
	stopped func() bool
}

func (s *stopOnPermanent) NextBackOff() time.Duration {
	if s.stopped() {
		return backoff.Stop
	}
	return s.BackOff.NextBackOff()
}
