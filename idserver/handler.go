package idserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ceyewan/shorturl/idgen"
	"github.com/ceyewan/shorturl/trace"
)

type idResponse struct {
	ID    string `json:"id"`
	Value uint64 `json:"value"`
}

type batchResponse struct {
	IDs []string `json:"ids"`
}

type decodeResponse struct {
	ID          string `json:"id"`
	Value       uint64 `json:"value"`
	TimestampMS int64  `json:"timestamp_ms"`
	Time        string `json:"time"`
	idgen.Parts
}

type layoutResponse struct {
	EpochMS        int64 `json:"epoch_ms"`
	TimestampBits  uint8 `json:"timestamp_bits"`
	DatacenterBits uint8 `json:"datacenter_bits"`
	WorkerBits     uint8 `json:"worker_bits"`
	ShardBits      uint8 `json:"shard_bits"`
	SequenceBits   uint8 `json:"sequence_bits"`
}

type identityResponse struct {
	Mode         string         `json:"mode"`
	WorkerID     uint64         `json:"worker_id"`
	DatacenterID uint64         `json:"datacenter_id"`
	Codec        string         `json:"codec"`
	Layout       layoutResponse `json:"layout"`
}

// nextIDs GET /v1/ids[?count=N]
func (s *Server) nextIDs(c *gin.Context) {
	codec := s.gen.Codec()

	raw, batch := c.GetQuery("count")
	count := 1
	if batch {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxBatch {
			s.abortWithError(c, fmt.Errorf("%w: count must be an integer in [1, %d], got %q",
				idgen.ErrInvalidInput, MaxBatch, raw))
			return
		}
		count = n
	}

	ctx, span := trace.Start(c.Request.Context(), trace.SpanNameNextID,
		attribute.String(trace.AttrIDGenMode, s.mode),
		attribute.Int(trace.AttrIDGenCount, count),
		attribute.Int64(trace.AttrIDGenWorkerID, int64(s.gen.WorkerID())),
		attribute.Int64(trace.AttrIDGenDatacenterID, int64(s.gen.DatacenterID())))
	ids, err := s.generate(ctx, count)
	trace.End(span, err)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	if !batch {
		c.JSON(http.StatusOK, idResponse{ID: codec.Encode(ids[0]), Value: ids[0]})
		return
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = codec.Encode(id)
	}
	c.JSON(http.StatusOK, batchResponse{IDs: out})
}

// generate 连续发号，任意一次失败即整体失败
func (s *Server) generate(ctx context.Context, count int) ([]uint64, error) {
	ids := make([]uint64, 0, count)
	for i := 0; i < count; i++ {
		id, err := s.gen.NextID(ctx)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// decode GET /v1/ids/:id/decode
func (s *Server) decode(c *gin.Context) {
	text := c.Param("id")
	id, err := s.gen.Codec().Decode(text)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	layout := s.gen.Layout()
	parts := layout.Decode(id)
	c.JSON(http.StatusOK, decodeResponse{
		ID:          text,
		Value:       id,
		TimestampMS: layout.EpochMS + parts.Timestamp,
		Time:        layout.Time(id).Format(time.RFC3339Nano),
		Parts:       parts,
	})
}

// identity GET /v1/identity
func (s *Server) identity(c *gin.Context) {
	l := s.gen.Layout()
	c.JSON(http.StatusOK, identityResponse{
		Mode:         s.mode,
		WorkerID:     s.gen.WorkerID(),
		DatacenterID: s.gen.DatacenterID(),
		Codec:        s.gen.Codec().Name(),
		Layout: layoutResponse{
			EpochMS:        l.EpochMS,
			TimestampBits:  l.TimestampBits(),
			DatacenterBits: l.DatacenterBits,
			WorkerBits:     l.WorkerBits,
			ShardBits:      l.ShardBits,
			SequenceBits:   l.SequenceBits,
		},
	})
}

// healthz GET /healthz
func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
