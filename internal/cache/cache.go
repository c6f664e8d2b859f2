package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"shop_back_end/internal/models"
)

const ProductCacheTTL = 10 * time.Minute

// generationTTL : bien plus long que la durée d'un chargement.
const generationTTL = 24 * time.Hour

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrStaleLoad : le produit a été modifié pendant le chargement, la valeur lue n'est pas mise en cache.
	ErrStaleLoad = errors.New("product changed during load")
)

// ProductLoader lit le produit dans la source de vérité quand le cache est vide.
type ProductLoader func(ctx context.Context, id int64) (*models.Product, error)

// ProductCache : cache read-through des produits. Sans client Redis, chaque lecture va au loader.
type ProductCache struct {
	client  *redis.Client
	baseTTL time.Duration
	group   singleflight.Group
}

func NewProductCache(client *redis.Client) *ProductCache {
	return &ProductCache{client: client, baseTTL: ProductCacheTTL}
}

func (c *ProductCache) Enabled() bool {
	return c.client != nil
}

func (c *ProductCache) Get(ctx context.Context, id int64) (*models.Product, error) {
	if !c.Enabled() {
		return nil, ErrCacheMiss
	}

	data, err := c.client.Get(ctx, productKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product failed: %w", err)
	}
	return &p, nil
}

// Set ajoute une gigue de 0 à 4 minutes au TTL pour étaler les expirations.
func (c *ProductCache) Set(ctx context.Context, p *models.Product) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product failed: %w", err)
	}

	if err := c.client.Set(ctx, productKey(p.ProductID), data, c.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Invalidate supprime l'entrée et incrémente la génération du produit :
// un chargement commencé avant l'écriture ne pourra plus remettre l'ancienne valeur en cache.
func (c *ProductCache) Invalidate(ctx context.Context, id int64) error {
	if !c.Enabled() {
		return nil
	}

	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, generationKey(id))
	pipe.Expire(ctx, generationKey(id), generationTTL)
	pipe.Del(ctx, productKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}

// GetOrLoad sert depuis Redis, sinon appelle load une seule fois par id même sous charge concurrente.
// Une panne Redis n'empêche pas la lecture : on retombe sur load.
func (c *ProductCache) GetOrLoad(ctx context.Context, id int64, load ProductLoader) (*models.Product, error) {
	if p, err := c.Get(ctx, id); err == nil {
		return p, nil
	}

	v, err, _ := c.group.Do(productKey(id), func() (any, error) {
		gen, genErr := c.generation(ctx, id)

		p, err := load(ctx, id)
		if err != nil {
			return nil, err
		}
		if genErr == nil {
			_ = c.setIfGeneration(ctx, p, gen)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	// copie : les appelants partagent le résultat du singleflight
	p := *v.(*models.Product)
	return &p, nil
}

func (c *ProductCache) generation(ctx context.Context, id int64) (string, error) {
	if !c.Enabled() {
		return "", ErrCacheMiss
	}
	gen, err := c.client.Get(ctx, generationKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return gen, err
}

// setIfGeneration n'écrit que si aucune invalidation n'a eu lieu depuis la lecture de gen (WATCH/MULTI).
func (c *ProductCache) setIfGeneration(ctx context.Context, p *models.Product, gen string) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product failed: %w", err)
	}

	key := generationKey(p.ProductID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return ErrStaleLoad
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, productKey(p.ProductID), data, c.ttl())
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrStaleLoad
	}
	return err
}

func (c *ProductCache) ttl() time.Duration {
	return c.baseTTL + time.Duration(rand.Intn(5))*time.Minute
}

func generationKey(id int64) string {
	return "product_gen:" + strconv.FormatInt(id, 10)
}

func productKey(id int64) string {
	return "product:" + strconv.FormatInt(id, 10)
}
