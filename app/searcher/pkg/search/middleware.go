package search

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/web_searcher/app/searcher/pkg/logger"
)

type rateLimited struct {
	Searcher
	limiter *rate.Limiter
}

// WithRateLimit 调用后端前先等待限流器
func WithRateLimit(s Searcher, limiter *rate.Limiter) Searcher {
	if s == nil || limiter == nil {
		return s
	}
	return &rateLimited{Searcher: s, limiter: limiter}
}

func (r *rateLimited) Search(ctx context.Context, req *Request) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, NewBackendError(r.Name(), err)
	}
	return r.Searcher.Search(ctx, req)
}

// BreakerSettings 熔断参数
type BreakerSettings struct {
	MaxFailures uint32        // 连续失败多少次后熔断
	OpenTimeout time.Duration // 熔断后多久进入半开
	Interval    time.Duration // 闭合状态下清零计数的周期
}

type circuitBroken struct {
	Searcher
	cb *gobreaker.CircuitBreaker[*Response]
}

// WithCircuitBreaker 为后端加上熔断，熔断打开时直接返回 BackendError 以便回退
func WithCircuitBreaker(s Searcher, st BreakerSettings) Searcher {
	if s == nil || st.MaxFailures == 0 {
		return s
	}
	if st.OpenTimeout <= 0 {
		st.OpenTimeout = 30 * time.Second
	}
	if st.Interval <= 0 {
		st.Interval = 60 * time.Second
	}
	maxFailures := st.MaxFailures
	cb := gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        "search:" + s.Name(),
		MaxRequests: 1,
		Interval:    st.Interval,
		Timeout:     st.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Log.Warnf("熔断状态变化 [%s]: %s -> %s", name, from.String(), to.String())
		},
	})
	return &circuitBroken{Searcher: s, cb: cb}
}

func (c *circuitBroken) Search(ctx context.Context, req *Request) (*Response, error) {
	resp, err := c.cb.Execute(func() (*Response, error) {
		return c.Searcher.Search(ctx, req)
	})
	if err != nil {
		var be *BackendError
		if errors.As(err, &be) {
			return nil, err
		}
		return nil, NewBackendError(c.Name(), err)
	}
	return resp, nil
}
