package idgen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLayout_Unit(t *testing.T) {
	tests := []struct {
		name          string
		epoch         int64
		dc, w, sh, sq uint8
		wantTSBits    uint8
		wantErr       bool
	}{
		{name: "serialized default", epoch: DefaultEpochMS, dc: 5, w: 5, sh: 0, sq: 12, wantTSBits: 41},
		{name: "sharded default", epoch: DefaultShardedEpochMS, dc: 5, w: 5, sh: 3, sq: 12, wantTSBits: 38},
		{name: "one timestamp bit left", epoch: 0, dc: 20, w: 20, sh: 10, sq: 12, wantTSBits: 1},
		{name: "no timestamp bit", epoch: 0, dc: 20, w: 20, sh: 10, sq: 13, wantErr: true},
		{name: "zero sequence bits", epoch: 0, dc: 5, w: 5, sh: 0, sq: 0, wantErr: true},
		{name: "negative epoch", epoch: -1, dc: 5, w: 5, sh: 0, sq: 12, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLayout(tt.epoch, tt.dc, tt.w, tt.sh, tt.sq)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLayout)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTSBits, l.TimestampBits())
			assert.Equal(t, uint64(1)<<tt.sq-1, l.MaxSequence())
		})
	}
}

func TestDefaultLayouts_Unit(t *testing.T) {
	l := DefaultLayout()
	assert.Equal(t, uint64(31), l.MaxDatacenter())
	assert.Equal(t, uint64(31), l.MaxWorker())
	assert.Equal(t, uint64(0), l.MaxShard())
	assert.Equal(t, uint64(4095), l.MaxSequence())
	assert.Equal(t, int64(1)<<41-1, l.MaxTimestamp())
	assert.Equal(t, "41/5/5/0/12@1420041600000", l.String())

	s := DefaultShardedLayout()
	assert.Equal(t, uint64(7), s.MaxShard())
	assert.Equal(t, int64(1)<<38-1, s.MaxTimestamp())

	// 38 bit 从 2025 年起算至少覆盖到 2033 年
	end := time.UnixMilli(s.EpochMS + s.MaxTimestamp()).UTC()
	assert.True(t, end.After(time.Date(2033, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestLayout_PackDecode_Unit(t *testing.T) {
	l := DefaultShardedLayout()

	tests := []struct {
		name  string
		parts Parts
	}{
		{name: "zero", parts: Parts{}},
		{name: "typical", parts: Parts{Timestamp: 123456789, DatacenterID: 1, WorkerID: 1, ShardID: 3, Sequence: 42}},
		{name: "all max", parts: Parts{
			Timestamp:    l.MaxTimestamp(),
			DatacenterID: l.MaxDatacenter(),
			WorkerID:     l.MaxWorker(),
			ShardID:      l.MaxShard(),
			Sequence:     l.MaxSequence(),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.parts
			id := l.Pack(p.Timestamp, p.DatacenterID, p.WorkerID, p.ShardID, p.Sequence)
			assert.Equal(t, p, l.Decode(id))
			assert.Zero(t, id>>63, "sign bit must be clear")
		})
	}
}

func TestLayout_Pack_BitPositions_Unit(t *testing.T) {
	l := DefaultLayout()

	assert.Equal(t, uint64(1), l.Pack(0, 0, 0, 0, 1))
	assert.Equal(t, uint64(1)<<12, l.Pack(0, 0, 1, 0, 0))
	assert.Equal(t, uint64(1)<<17, l.Pack(0, 1, 0, 0, 0))
	assert.Equal(t, uint64(1)<<22, l.Pack(1, 0, 0, 0, 0))

	s := DefaultShardedLayout()
	assert.Equal(t, uint64(1)<<12, s.Pack(0, 0, 0, 1, 0))
	assert.Equal(t, uint64(1)<<15, s.Pack(0, 0, 1, 0, 0))
	assert.Equal(t, uint64(1)<<20, s.Pack(0, 1, 0, 0, 0))
	assert.Equal(t, uint64(1)<<25, s.Pack(1, 0, 0, 0, 0))
}

func TestLayout_Time_Unit(t *testing.T) {
	l := DefaultLayout()
	id := l.Pack(1000, 1, 1, 0, 0)
	assert.Equal(t, time.Date(2014, 12, 31, 16, 0, 1, 0, time.UTC), l.Time(id))
}
