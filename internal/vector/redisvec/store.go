// Package redisvec implements vector.Index on Redis 8+ via RediSearch
// (FT.CREATE / FT.SEARCH with an HNSW vector field). Records live in hashes
// under a configurable key prefix; the district field is indexed as a TAG so
// the equality filter runs server-side before KNN truncation.
package redisvec

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/suwonbread/bready/internal/domain"
	"github.com/suwonbread/bready/internal/vector"
)

const (
	fieldVector    = "vector"
	fieldName      = "name"
	fieldDistrict  = "district"
	fieldAddress   = "address"
	fieldBreadTags = "bread_tags"
	// scoreField is the alias RediSearch assigns to the KNN distance of the
	// "vector" schema field.
	scoreField = "__vector_score"
)

// Config holds connection parameters for the Redis vector store.
type Config struct {
	Addrs      []string
	Password   string
	KeyPrefix  string
	Dimensions int
}

// Store implements vector.Index backed by RediSearch.
type Store struct {
	client rueidis.Client
	prefix string
	dim    int
}

// NewStore connects to Redis and ensures the bakery vector index exists.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Password:     cfg.Password,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("create redis client: %w", err)
	}

	s := &Store{client: client, prefix: cfg.KeyPrefix, dim: cfg.Dimensions}
	if err := s.ensureIndex(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// WaitForReady polls PING until the store responds or the timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for redis: %w", ctx.Err())
		case <-ticker.C:
			if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err == nil {
				return nil
			}
		}
	}
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

func (s *Store) key(id string) string       { return s.prefix + "vec:" + id }
func (s *Store) indexName() string          { return s.prefix + "vec_idx" }
func (s *Store) cacheKey(key string) string { return s.prefix + "emb_cache:" + key }

// ensureIndex creates the FT index if it does not already exist.
func (s *Store) ensureIndex(ctx context.Context) error {
	args := []string{
		s.indexName(),
		"ON", "HASH",
		"PREFIX", "1", s.prefix + "vec:",
		"SCHEMA",
		fieldDistrict, "TAG",
		fieldVector, "VECTOR", "HNSW", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(s.dim),
		"DISTANCE_METRIC", "COSINE",
	}
	cmd := s.client.B().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return fmt.Errorf("create index: %w: %w", err, domain.ErrVectorStore)
	}
	return nil
}

// Upsert replaces the full hash for the record's id. HSET over an existing key
// with DEL first guarantees last-write-wins with no field merge.
func (s *Store) Upsert(ctx context.Context, rec vector.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required: %w", domain.ErrVectorStore)
	}
	if len(rec.Vector) != s.dim {
		return fmt.Errorf("vector has %d dimensions, index expects %d: %w",
			len(rec.Vector), s.dim, domain.ErrVectorStore)
	}

	key := s.key(rec.ID)
	cmds := []rueidis.Completed{
		s.client.B().Del().Key(key).Build(),
		s.hsetCmd(key, rec),
	}
	for _, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return fmt.Errorf("upsert %s: %w: %w", rec.ID, err, domain.ErrVectorStore)
		}
	}
	return nil
}

// UpsertBatch stores multiple records in a single pipelined round-trip.
func (s *Store) UpsertBatch(ctx context.Context, recs []vector.Record) error {
	if len(recs) == 0 {
		return nil
	}
	cmds := make([]rueidis.Completed, 0, len(recs)*2)
	for _, rec := range recs {
		if len(rec.Vector) != s.dim {
			return fmt.Errorf("vector for %s has %d dimensions, index expects %d: %w",
				rec.ID, len(rec.Vector), s.dim, domain.ErrVectorStore)
		}
		key := s.key(rec.ID)
		cmds = append(cmds, s.client.B().Del().Key(key).Build(), s.hsetCmd(key, rec))
	}
	for _, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return fmt.Errorf("upsert batch: %w: %w", err, domain.ErrVectorStore)
		}
	}
	return nil
}

func (s *Store) hsetCmd(key string, rec vector.Record) rueidis.Completed {
	return s.client.B().Hset().Key(key).FieldValue().
		FieldValue(fieldVector, vectorToBytes(rec.Vector)).
		FieldValue(fieldName, rec.Metadata.Name).
		FieldValue(fieldDistrict, rec.Metadata.District).
		FieldValue(fieldAddress, rec.Metadata.Address).
		FieldValue(fieldBreadTags, strings.Join(rec.Metadata.BreadTags, ",")).
		Build()
}

// Fetch returns a stored record by id.
func (s *Store) Fetch(ctx context.Context, id string) (vector.Record, error) {
	cmd := s.client.B().Hgetall().Key(s.key(id)).Build()
	fields, err := s.client.Do(ctx, cmd).AsStrMap()
	if err != nil {
		return vector.Record{}, fmt.Errorf("fetch %s: %w: %w", id, err, domain.ErrVectorStore)
	}
	if len(fields) == 0 {
		return vector.Record{}, domain.ErrVectorNotFound
	}

	return vector.Record{
		ID:       id,
		Vector:   bytesToVector(fields[fieldVector]),
		Metadata: metadataFromFields(fields),
	}, nil
}

// Delete removes records by id. DEL on absent keys is a no-op, matching the
// idempotency contract.
func (s *Store) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	cmd := s.client.B().Del().Key(keys...).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("delete: %w: %w", err, domain.ErrVectorStore)
	}
	return nil
}

// Query runs a KNN search via FT.SEARCH, pre-filtered by district when set.
func (s *Store) Query(ctx context.Context, q vector.Query) ([]vector.Hit, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("query vector is required: %w", domain.ErrVectorStore)
	}
	if q.TopK <= 0 {
		return nil, nil
	}

	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB]", q.TopK, fieldVector)
	queryStr := "*=>" + knnPart
	if q.District != "" {
		queryStr = fmt.Sprintf("(@%s:{%s})=>%s", fieldDistrict, escapeTag(q.District), knnPart)
	}

	args := []string{
		s.indexName(), queryStr,
		"RETURN", "5", fieldName, fieldDistrict, fieldAddress, fieldBreadTags, scoreField,
		"SORTBY", scoreField, "ASC",
		"LIMIT", "0", strconv.Itoa(q.TopK),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	}

	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("knn search: %w: %w", err, domain.ErrVectorStore)
	}

	return s.parseHits(raw)
}

// parseHits decodes the RESP2 FT.SEARCH reply: [total, key1, fields1, ...].
func (s *Store) parseHits(raw []rueidis.RedisMessage) ([]vector.Hit, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w: %w", err, domain.ErrVectorStore)
	}
	if total == 0 {
		return nil, nil
	}

	keyPrefix := s.prefix + "vec:"
	hits := make([]vector.Hit, 0, total)

	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fieldArr, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		fields := parseFieldPairs(fieldArr)

		hit := vector.Hit{
			ID:       strings.TrimPrefix(key, keyPrefix),
			Metadata: metadataFromFields(fields),
		}
		if distStr, ok := fields[scoreField]; ok {
			if d, err := strconv.ParseFloat(distStr, 64); err == nil {
				// cosine distance -> similarity, clamped to [0,1]
				hit.Score = math.Min(1, math.Max(0, 1-d))
			}
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// CacheGet reads a cached embedding blob. ok is false when the key is absent.
func (s *Store) CacheGet(ctx context.Context, key string) ([]byte, bool, error) {
	cmd := s.client.B().Get().Key(s.cacheKey(key)).Build()
	data, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return data, true, nil
}

// CacheSet stores a cached embedding blob.
func (s *Store) CacheSet(ctx context.Context, key string, value []byte) error {
	cmd := s.client.B().Set().Key(s.cacheKey(key)).Value(string(value)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func metadataFromFields(fields map[string]string) vector.Metadata {
	md := vector.Metadata{
		Name:     fields[fieldName],
		District: fields[fieldDistrict],
		Address:  fields[fieldAddress],
	}
	if tags := fields[fieldBreadTags]; tags != "" {
		md.BreadTags = strings.Split(tags, ",")
	}
	return md
}

func parseFieldPairs(arr []rueidis.RedisMessage) map[string]string {
	fields := make(map[string]string, len(arr)/2)
	for i := 0; i+1 < len(arr); i += 2 {
		k, err := arr[i].ToString()
		if err != nil {
			continue
		}
		v, err := arr[i+1].ToString()
		if err != nil {
			continue
		}
		fields[k] = v
	}
	return fields
}

// vectorToBytes serializes []float32 as little-endian binary, the layout
// RediSearch expects for FLOAT32 vector fields.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// tagEscaper escapes RediSearch TAG special characters.
var tagEscaper = strings.NewReplacer(
	",", "\\,", ".", "\\.", "<", "\\<", ">", "\\>", "{", "\\{", "}", "\\}",
	"[", "\\[", "]", "\\]", "\"", "\\\"", "'", "\\'", ":", "\\:", ";", "\\;",
	"!", "\\!", "@", "\\@", "#", "\\#", "$", "\\$", "%", "\\%", "^", "\\^",
	"&", "\\&", "*", "\\*", "(", "\\(", ")", "\\)", "-", "\\-", "+", "\\+",
	"=", "\\=", "~", "\\~", " ", "\\ ", "|", "\\|", "/", "\\/",
)

func escapeTag(v string) string {
	return tagEscaper.Replace(v)
}

// isRedisErr checks if err is a Redis server error containing substr
// (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
