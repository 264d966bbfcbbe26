package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"jlpt-listening/config"
	"jlpt-listening/internal/core/question"
	"jlpt-listening/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	fieldID        = "id"
	fieldSection   = "section"
	fieldSeq       = "seq"
	fieldQuestion  = "question"
	fieldEmbedding = "embedding"
	maxQuestionLen = 65535
)

// ConnectMilvus dials Milvus, retrying while the server boots.
func ConnectMilvus(ctx context.Context, address string, attempts uint64, perAttempt time.Duration) (milvusclient.Client, error) {
	var cli milvusclient.Client
	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, perAttempt)
		defer cancel()
		c, err := milvusclient.NewClient(attemptCtx, milvusclient.Config{Address: address})
		if err != nil {
			logger.Warn("%v: connect %s failed: %v", config.ModuleMilvus, address, err)
			return err
		}
		cli = c
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), attempts), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return cli, nil
}

// MilvusIndex stores each collection as a Milvus collection with an HNSW index.
type MilvusIndex struct {
	cli    milvusclient.Client
	metric Metric
	ef     int
	m      int
	efc    int
}

func NewMilvusIndex(cli milvusclient.Client, metric Metric) *MilvusIndex {
	hnsw := config.Cfg.Milvus.IndexHNSWConfig
	return &MilvusIndex{cli: cli, metric: metric, ef: hnsw.Ef, m: hnsw.M, efc: hnsw.EfConstruction}
}

func (x *MilvusIndex) metricType() milvusentity.MetricType {
	if x.metric == MetricCosine {
		return milvusentity.COSINE
	}
	return milvusentity.L2
}

func (x *MilvusIndex) HasCollection(ctx context.Context, name string) (bool, error) {
	return x.cli.HasCollection(ctx, name)
}

func (x *MilvusIndex) EnsureCollection(ctx context.Context, name string, dim int) error {
	exists, err := x.cli.HasCollection(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	schema := milvusentity.NewSchema().WithName(name).WithDescription("jlpt listening questions")
	// Primary key (no AutoID), ids are assigned by the store.
	schema.WithField(milvusentity.NewField().WithName(fieldID).WithDataType(milvusentity.FieldTypeVarChar).WithMaxLength(128).WithIsPrimaryKey(true))
	schema.WithField(milvusentity.NewField().WithName(fieldSection).WithDataType(milvusentity.FieldTypeInt64))
	schema.WithField(milvusentity.NewField().WithName(fieldSeq).WithDataType(milvusentity.FieldTypeInt64))
	schema.WithField(milvusentity.NewField().WithName(fieldQuestion).WithDataType(milvusentity.FieldTypeVarChar).WithMaxLength(maxQuestionLen))
	schema.WithField(milvusentity.NewField().WithName(fieldEmbedding).WithDataType(milvusentity.FieldTypeFloatVector).WithDim(int64(dim)))

	if err := x.cli.CreateCollection(ctx, schema, 2); err != nil {
		return err
	}

	idx, err := milvusentity.NewIndexHNSW(x.metricType(), x.m, x.efc)
	if err != nil {
		return err
	}
	if err := x.cli.CreateIndex(ctx, name, fieldEmbedding, idx, false); err != nil {
		return err
	}
	logger.Info("%v: created collection %s (dim=%d)", config.ModuleMilvus, name, dim)
	return nil
}

func (x *MilvusIndex) Count(ctx context.Context, name string) (int64, error) {
	stats, err := x.cli.GetCollectionStatistics(ctx, name)
	if err != nil {
		return 0, err
	}
	raw, ok := stats["row_count"]
	if !ok {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (x *MilvusIndex) Insert(ctx context.Context, name string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, len(entries))
	sections := make([]int64, len(entries))
	seqs := make([]int64, len(entries))
	docs := make([]string, len(entries))
	vectors := make([][]float32, len(entries))
	for i, e := range entries {
		raw, err := json.Marshal(e.Question)
		if err != nil {
			return err
		}
		if len(raw) > maxQuestionLen {
			return fmt.Errorf("%s: question document too large (%d bytes)", e.ID, len(raw))
		}
		ids[i] = e.ID
		sections[i] = int64(e.Section)
		seqs[i] = e.Seq
		docs[i] = string(raw)
		vectors[i] = e.Embedding
	}
	dim := len(vectors[0])

	if _, err := x.cli.Insert(ctx, name, "",
		milvusentity.NewColumnVarChar(fieldID, ids),
		milvusentity.NewColumnInt64(fieldSection, sections),
		milvusentity.NewColumnInt64(fieldSeq, seqs),
		milvusentity.NewColumnVarChar(fieldQuestion, docs),
		milvusentity.NewColumnFloatVector(fieldEmbedding, dim, vectors),
	); err != nil {
		return err
	}
	// Flush so row_count reflects the insert before the next id is assigned.
	return x.cli.Flush(ctx, name, false)
}

func (x *MilvusIndex) Search(ctx context.Context, name string, vector []float32, topK int) ([]Hit, error) {
	if err := x.cli.LoadCollection(ctx, name, false); err != nil {
		return nil, err
	}
	searchParam, err := milvusentity.NewIndexHNSWSearchParam(max(x.ef, topK))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results, err := x.cli.Search(
		ctx,
		name,
		nil, // partitions
		"",
		[]string{fieldSection, fieldQuestion},
		[]milvusentity.Vector{milvusentity.FloatVector(vector)},
		fieldEmbedding,
		x.metricType(),
		topK,
		searchParam,
	)
	if err != nil {
		logger.Error(err, "%v: milvus search failed", config.ModuleMilvus)
		return nil, err
	}
	logger.Debug("%v: milvus search %s done in %dms", config.ModuleMilvus, name, time.Since(start).Milliseconds())

	if len(results) == 0 {
		return []Hit{}, nil
	}
	it := results[0]
	idCol, ok := it.IDs.(*milvusentity.ColumnVarChar)
	if !ok {
		return nil, fmt.Errorf("%v: unexpected id column %T", config.ModuleMilvus, it.IDs)
	}

	hits := make([]Hit, 0, it.ResultCount)
	for i := 0; i < it.ResultCount; i++ {
		h := Hit{ID: idCol.Data()[i], Distance: x.toDistance(it.Scores[i])}
		for _, field := range it.Fields {
			switch col := field.(type) {
			case *milvusentity.ColumnInt64:
				if col.Name() == fieldSection {
					h.Section = int(col.Data()[i])
				}
			case *milvusentity.ColumnVarChar:
				if col.Name() == fieldQuestion {
					var q question.Question
					if err := json.Unmarshal([]byte(col.Data()[i]), &q); err != nil {
						return nil, fmt.Errorf("%s: decode question: %w", h.ID, err)
					}
					h.Question = q
				}
			}
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// toDistance maps Milvus scores to "smaller is closer". L2 scores already are
// squared distances; cosine scores are similarities.
func (x *MilvusIndex) toDistance(score float32) float32 {
	if x.metric == MetricCosine {
		return 1 - score
	}
	return score
}

func (x *MilvusIndex) Close() error {
	return x.cli.Close()
}
