package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

func (w *World) stateDigest(step uint64) string {
	h := sha256.New()
	var tmp [8]byte

	c := w.state.Clock
	digestWriteU64(h, &tmp, step)
	digestWriteU64(h, &tmp, uint64(c.Year))
	h.Write([]byte{byte(c.Season), c.Day, c.Hour, c.Minute, byte(c.Weather), byte(w.state.PreviousDayWeather), boolByte(c.TimePaused)})
	digestWriteU64(h, &tmp, math.Float64bits(c.TimeScale))
	digestWriteU64(h, &tmp, uint64(c.Elapsed))

	k := w.festivals.LastAnnounced
	digestWriteU64(h, &tmp, uint64(k.Year))
	h.Write([]byte{k.Day, byte(k.SeasonIndex), byte(w.festivals.Active)})
	h.Write([]byte(w.mode))

	if rng, err := w.pcg.MarshalBinary(); err == nil {
		h.Write(rng)
	}
	return hex.EncodeToString(h.Sum(nil))
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
