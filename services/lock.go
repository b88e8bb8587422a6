package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Locker sorgt dafür, dass höchstens ein Lauf (Dispatch oder Auswahl)
// gleichzeitig gegen denselben Datenbestand arbeitet. Acquire liefert
// ErrRunLocked, wenn der Lock bereits gehalten wird.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// Redis-Schlüssel der beiden Locks: der Dispatch-Lauf und jede einzelne
// Auswahl (auch /reprise und CLI) sind getrennt gesperrt, damit ein Dispatch
// beim Auswählen nicht auf seinen eigenen Lock trifft.
const (
	DispatchLockKey = "reprise:dispatch:lock"
	SelectorLockKey = "reprise:selector:lock"
)

// NoopLocker sperrt nichts.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context) (func(), error) { return func() {}, nil }

// LocalLocker serialisiert Läufe innerhalb eines Prozesses. Mit Wait wartet
// Acquire auf die Freigabe (oder den Abbruch von ctx), sonst liefert es sofort ErrRunLocked.
type LocalLocker struct {
	Wait bool
	sem  chan struct{}
}

// NewLocalLocker erstellt einen freien LocalLocker.
func NewLocalLocker(wait bool) *LocalLocker {
	return &LocalLocker{Wait: wait, sem: make(chan struct{}, 1)}
}

func (l *LocalLocker) Acquire(ctx context.Context) (func(), error) {
	if l.Wait {
		select {
		case l.sem <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else {
		select {
		case l.sem <- struct{}{}:
		default:
			return nil, ErrRunLocked
		}
	}
	var once sync.Once
	return func() { once.Do(func() { <-l.sem }) }, nil
}

// ChainLocker nimmt mehrere Locks nacheinander und gibt sie umgekehrt frei.
type ChainLocker []Locker

func (c ChainLocker) Acquire(ctx context.Context) (func(), error) {
	releases := make([]func(), 0, len(c))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, l := range c {
		release, err := l.Acquire(ctx)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

// releaseScript löscht den Schlüssel nur, wenn er noch uns gehört.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker hält den Lock als Redis-Schlüssel mit Ablaufzeit. Ist Wait
// gesetzt, versucht Acquire es so lange erneut, bevor es ErrRunLocked liefert.
type RedisLocker struct {
	Client *redis.Client
	Key    string
	TTL    time.Duration
	Wait   time.Duration
	IDs    IDGenerator
	Logger *zap.Logger
}

const lockPollInterval = 100 * time.Millisecond

// NewRedisClient verbindet sich mit Redis und prüft die Verbindung.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisLocker erstellt einen RedisLocker für den Dispatch-Lauf.
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		Client: client,
		Key:    DispatchLockKey,
		TTL:    ttl,
		IDs:    UUIDGenerator{},
		Logger: logger,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context) (func(), error) {
	token := l.IDs.NewID()
	deadline := time.Now().Add(l.Wait)
	for {
		ok, err := l.Client.SetNX(ctx, l.Key, token, l.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", l.Key, err)
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			return nil, ErrRunLocked
		}
		select {
		case <-time.After(lockPollInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	release := func() {
		// Eigener Kontext, damit der Lock auch nach Abbruch des Laufs freigegeben wird.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.Client, []string{l.Key}, token).Err(); err != nil {
			l.Logger.Warn("Lock konnte nicht freigegeben werden.", zap.String("key", l.Key), zap.Error(err))
		}
	}
	return release, nil
}
