package adapters

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dbfarm/dbfarm/pkg/provision"
)

// RedisAdapter provisions ACL users on a shared Redis server. An
// "instance" is an ACL user confined to keys under the instance name's
// prefix; there is no per-tenant database to create.
type RedisAdapter struct {
	cfg Config
}

// NewRedis creates a Redis adapter.
func NewRedis(cfg Config) *RedisAdapter {
	return &RedisAdapter{cfg: cfg}
}

// Kind returns the engine kind this adapter serves.
func (a *RedisAdapter) Kind() provision.EngineKind {
	return provision.EngineRedis
}

// Endpoint returns the advertised host and port.
func (a *RedisAdapter) Endpoint() (string, int) {
	return a.cfg.Host, a.cfg.Port
}

// Create issues ACL SETUSER granting the new user full command access to
// keys matching "<name>:*". SETUSER is an upsert, so re-running it is
// harmless.
func (a *RedisAdapter) Create(ctx context.Context, name, dbUser, secret string, _ int) (string, error) {
	client, err := a.connect()
	if err != nil {
		return "", err
	}
	defer client.Close()

	err = client.Do(ctx,
		"ACL", "SETUSER", dbUser,
		"on", ">"+secret,
		"~"+name+":*",
		"+@all",
	).Err()
	if err != nil {
		return "", fmt.Errorf("redis: create acl user %s: %w", dbUser, err)
	}

	return a.cfg.Host, nil
}

// Destroy removes the ACL user. DELUSER reports the number of users
// removed and is not an error for a missing user.
func (a *RedisAdapter) Destroy(ctx context.Context, _ string, dbUser string) error {
	client, err := a.connect()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Do(ctx, "ACL", "DELUSER", dbUser).Err(); err != nil {
		return fmt.Errorf("redis: drop acl user %s: %w", dbUser, err)
	}

	return nil
}

func (a *RedisAdapter) connect() (*redis.Client, error) {
	opt, err := redis.ParseURL(a.cfg.AdminDSN)
	if err != nil {
		return nil, fmt.Errorf("redis: parse admin url: %w", err)
	}
	return redis.NewClient(opt), nil
}
