package cache

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"course_cache_engine/pkg/monitoring"
	"course_cache_engine/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const defaultMaxBuildAttempts = 3

type options struct {
	log             *zap.Logger
	now             func() time.Time
	ttl             time.Duration
	maxAttempts     int
	regenerateDirty bool
	keys            Keys
	codec           *Codec
}

// Option 配置 ContentCache / PointsCache
type Option func(*options)

func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithClock 替换时间源，测试用
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

func WithMaxBuildAttempts(n int) Option {
	return func(o *options) { o.maxAttempts = n }
}

func WithRegenerateDirty(on bool) Option {
	return func(o *options) { o.regenerateDirty = on }
}

func WithKeyPrefix(prefix string) Option {
	return func(o *options) { o.keys = Keys{Prefix: prefix} }
}

func WithCodec(c *Codec) Option {
	return func(o *options) { o.codec = c }
}

func buildOptions(opts []Option) options {
	o := options{
		log:         zap.NewNop(),
		now:         time.Now,
		maxAttempts: defaultMaxBuildAttempts,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.codec == nil {
		o.codec = NewCodec(false)
	}
	return o
}

// generation 内容缓存和积分缓存共用的"按代号读取或生成"逻辑。
//
// 每个缓存实体有一个代号 key，保存单调递增的令牌（纳秒时间戳）。
// 数据写在 data:<令牌> 下，失效只需推进令牌；生成结束时令牌若已变化，
// 说明期间有失效信号，这次结果不得保存。
type generation struct {
	name  string
	store Store
	codec *Codec
	now   func() time.Time
	log   *zap.Logger
	ttl   time.Duration

	maxAttempts     atomic.Int32
	regenerateDirty atomic.Bool
}

func newGeneration(name string, store Store, o options) *generation {
	g := &generation{
		name:  name,
		store: store,
		codec: o.codec,
		now:   o.now,
		log:   o.log.With(zap.String("cache", name)),
		ttl:   o.ttl,
	}
	g.setPolicy(o.regenerateDirty, o.maxAttempts)
	return g
}

func (g *generation) setPolicy(regenerateDirty bool, maxAttempts int) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	g.maxAttempts.Store(int32(maxAttempts))
	g.regenerateDirty.Store(regenerateDirty)
}

// token 读取当前令牌，不存在时以当前时间建立
func (g *generation) token(ctx context.Context, genKey string) (int64, error) {
	for i := 0; i < 2; i++ {
		blob, ok, err := g.store.Get(ctx, genKey)
		if err != nil {
			return 0, err
		}
		if ok {
			if token, err := strconv.ParseInt(string(blob), 10, 64); err == nil {
				return token, nil
			}
			g.log.Warn("resetting malformed generation token", zap.String("key", genKey))
			return g.bump(ctx, genKey, 0)
		}
		token := g.now().UnixNano()
		added, err := g.store.Add(ctx, genKey, []byte(strconv.FormatInt(token, 10)), 0)
		if err != nil {
			return 0, err
		}
		if added {
			return token, nil
		}
	}
	return g.bump(ctx, genKey, 0)
}

func (g *generation) bump(ctx context.Context, genKey string, old int64) (int64, error) {
	token := g.now().UnixNano()
	if token <= old {
		token = old + 1
	}
	if err := g.store.Set(ctx, genKey, []byte(strconv.FormatInt(token, 10)), 0); err != nil {
		return 0, err
	}
	return token, nil
}

// invalidate 推进令牌并删除旧代号的数据
func (g *generation) invalidate(ctx context.Context, genKey string, dataKey func(int64) string) error {
	monitoring.CacheInvalidations.WithLabelValues(g.name).Inc()

	var old int64
	blob, ok, err := g.store.Get(ctx, genKey)
	if err != nil {
		return err
	}
	if ok {
		old, _ = strconv.ParseInt(string(blob), 10, 64)
	}
	if _, err := g.bump(ctx, genKey, old); err != nil {
		return err
	}
	if ok {
		if err := g.store.Delete(ctx, dataKey(old)); err != nil {
			g.log.Warn("failed to drop invalidated generation", zap.String("key", dataKey(old)), zap.Error(err))
		}
	}
	return nil
}

// stamp 返回严格晚于令牌的创建时间
func (g *generation) stamp(token int64) time.Time {
	t := g.now()
	if t.UnixNano() <= token {
		t = time.Unix(0, token+1)
	}
	return t.UTC()
}

func load[T any](ctx context.Context, g *generation, key string) (*T, bool, error) {
	blob, ok, err := g.store.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	v := new(T)
	if err := g.codec.Decode(blob, v); err != nil {
		g.log.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		if err := g.store.Delete(ctx, key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return v, true, nil
}

// getOrBuild 返回当前代号下的实体，必要时调用 build 生成并保存。
// valid 为 nil 或返回 true 时命中有效；firstAttempt 为 false 表示已重试过。
func getOrBuild[T any](
	ctx context.Context,
	g *generation,
	genKey string,
	dataKey func(int64) string,
	valid func(v *T, firstAttempt bool) bool,
	build func(ctx context.Context, created time.Time) (*T, error),
) (*T, error) {
	attempts := int(g.maxAttempts.Load())
	var last *T
	for attempt := 0; attempt < attempts; attempt++ {
		token, err := g.token(ctx, genKey)
		if err != nil {
			return nil, err
		}
		key := dataKey(token)

		cached, hit, err := load[T](ctx, g, key)
		if err != nil {
			return nil, err
		}
		if hit {
			if valid == nil || valid(cached, attempt == 0) {
				monitoring.CacheHits.WithLabelValues(g.name).Inc()
				return cached, nil
			}
			monitoring.CacheRegenerations.WithLabelValues(g.name).Inc()
			if err := g.store.Delete(ctx, key); err != nil {
				return nil, err
			}
		}
		monitoring.CacheMisses.WithLabelValues(g.name).Inc()

		built, err := generate(ctx, g, token, build)
		if err != nil {
			return nil, err
		}
		last = built

		blob, err := g.codec.Encode(built)
		if err != nil {
			return nil, err
		}
		stored, err := g.store.Add(ctx, key, blob, g.ttl)
		if err != nil {
			return nil, err
		}
		result := built
		if !stored {
			// 并发的生成已先写入同一代号
			if winner, ok, err := load[T](ctx, g, key); err == nil && ok && (valid == nil || valid(winner, false)) {
				result = winner
			}
		}

		current, err := g.token(ctx, genKey)
		if err != nil {
			return nil, err
		}
		if current == token {
			return result, nil
		}

		monitoring.CacheConflicts.WithLabelValues(g.name).Inc()
		g.log.Info("generation invalidated while building, retrying",
			zap.String("key", genKey),
			zap.Int("attempt", attempt+1),
		)
		if stored {
			if err := g.store.Delete(ctx, key); err != nil {
				g.log.Warn("failed to drop stale generation", zap.String("key", key), zap.Error(err))
			}
		}
	}

	g.log.Warn("serving unsaved generation after repeated invalidation",
		zap.String("key", genKey),
		zap.Int("attempts", attempts),
	)
	return last, nil
}

func generate[T any](ctx context.Context, g *generation, token int64, build func(context.Context, time.Time) (*T, error)) (*T, error) {
	ctx, span := tracing.Tracer.Start(ctx, g.name+".generate")
	defer span.End()
	span.SetAttributes(attribute.Int64("cache.token", token))

	start := time.Now()
	v, err := build(ctx, g.stamp(token))
	monitoring.GenerationDuration.WithLabelValues(g.name).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return v, nil
}
