// Package search indexe le catalogue dans Elasticsearch.
// Les appels passent par un circuit breaker : un cluster indisponible ne ralentit pas l'API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	"shop_back_end/internal/models"
)

const DefaultIndex = "products"

var ErrIndexDisabled = errors.New("index Elasticsearch désactivé")

const productMapping = `{
  "mappings": {
    "properties": {
      "productId":   {"type": "long"},
      "productName": {"type": "text"},
      "description": {"type": "text"},
      "categoryId":  {"type": "long"},
      "unitPrice":   {"type": "scaled_float", "scaling_factor": 100}
    }
  }
}`

type ProductDocument struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Description string          `json:"description"`
	CategoryID  *int64          `json:"categoryId,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

func documentOf(p *models.Product) ProductDocument {
	return ProductDocument{
		ProductID:   p.ProductID,
		ProductName: p.ProductName,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		UnitPrice:   p.UnitPrice,
	}
}

type esResult struct {
	status int
	body   []byte
}

func (r esResult) isError() bool {
	return r.status > 299
}

type ProductIndex struct {
	client  *elasticsearch.Client
	index   string
	breaker *gobreaker.CircuitBreaker[esResult]
	log     *slog.Logger
}

// NewProductIndex : client nil = index désactivé, les appels retournent ErrIndexDisabled.
func NewProductIndex(client *elasticsearch.Client, index string, log *slog.Logger) *ProductIndex {
	if index == "" {
		index = DefaultIndex
	}

	pi := &ProductIndex{client: client, index: index, log: log}
	pi.breaker = gobreaker.NewCircuitBreaker[esResult](gobreaker.Settings{
		Name:        "elasticsearch-" + index,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("⚠️ circuit breaker Elasticsearch",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return pi
}

func (i *ProductIndex) Enabled() bool {
	return i.client != nil
}

// EnsureIndex crée l'index avec son mapping s'il n'existe pas encore.
func (i *ProductIndex) EnsureIndex(ctx context.Context) error {
	res, err := i.do(ctx, esapi.IndicesExistsRequest{Index: []string{i.index}})
	if err != nil {
		return err
	}
	if res.status == http.StatusOK {
		return nil
	}

	res, err = i.do(ctx, esapi.IndicesCreateRequest{
		Index: i.index,
		Body:  bytes.NewReader([]byte(productMapping)),
	})
	if err != nil {
		return err
	}
	if res.isError() {
		return fmt.Errorf("création de l'index %s: statut %d: %s", i.index, res.status, res.body)
	}

	i.log.Info("✅ Index Elasticsearch créé", slog.String("index", i.index))
	return nil
}

func (i *ProductIndex) Index(ctx context.Context, p *models.Product) error {
	data, err := json.Marshal(documentOf(p))
	if err != nil {
		return err
	}

	res, err := i.do(ctx, esapi.IndexRequest{
		Index:      i.index,
		DocumentID: strconv.FormatInt(p.ProductID, 10),
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	})
	if err != nil {
		return err
	}
	if res.isError() {
		return fmt.Errorf("indexation du produit %d: statut %d: %s", p.ProductID, res.status, res.body)
	}
	return nil
}

// Remove est idempotent : un document absent n'est pas une erreur.
func (i *ProductIndex) Remove(ctx context.Context, id int64) error {
	res, err := i.do(ctx, esapi.DeleteRequest{
		Index:      i.index,
		DocumentID: strconv.FormatInt(id, 10),
		Refresh:    "true",
	})
	if err != nil {
		return err
	}
	if res.isError() && res.status != http.StatusNotFound {
		return fmt.Errorf("suppression du produit %d: statut %d: %s", id, res.status, res.body)
	}
	return nil
}

// Search retourne les ids des produits par ordre de pertinence.
func (i *ProductIndex) Search(ctx context.Context, query string, limit int) ([]int64, error) {
	var buf bytes.Buffer
	q := map[string]any{
		"size":    limit,
		"_source": false,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"productName^2", "description"},
				"fuzziness": "AUTO",
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %w", err)
	}

	res, err := i.do(ctx, esapi.SearchRequest{
		Index: []string{i.index},
		Body:  &buf,
	})
	if err != nil {
		return nil, err
	}
	if res.isError() {
		return nil, fmt.Errorf("recherche: statut %d: %s", res.status, res.body)
	}

	var r struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(res.body, &r); err != nil {
		return nil, fmt.Errorf("erreur décodage JSON: %w", err)
	}

	ids := make([]int64, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// do exécute la requête à travers le breaker. Seules les pannes réseau et les 5xx comptent comme échecs.
func (i *ProductIndex) do(ctx context.Context, req esapi.Request) (esResult, error) {
	if !i.Enabled() {
		return esResult{}, ErrIndexDisabled
	}

	return i.breaker.Execute(func() (esResult, error) {
		res, err := req.Do(ctx, i.client)
		if err != nil {
			return esResult{}, err
		}
		defer res.Body.Close()

		body, err := io.ReadAll(res.Body)
		if err != nil {
			return esResult{}, err
		}

		out := esResult{status: res.StatusCode, body: body}
		if res.StatusCode >= http.StatusInternalServerError {
			return out, fmt.Errorf("elasticsearch: statut %d", res.StatusCode)
		}
		return out, nil
	})
}
