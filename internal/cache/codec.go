package cache

import (
	"bytes"
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"time"

	"candlehub/internal/market"
)

// Binary artifact layout (little endian):
//
//	magic "CHT1" | u8 version | i64 cached-at unix | u16 source len | source |
//	u32 row count | rows of (i64 unix-milli, 5 x f64)
//
// The fixed header lets staleness checks peek at cached-at/provider/rows
// without decoding the rows.
const (
	codecMagic   = "CHT1"
	codecVersion = 1
)

func Encode(t market.Table, cachedAt time.Time) []byte {
	var buf bytes.Buffer
	buf.WriteString(codecMagic)
	buf.WriteByte(codecVersion)
	writeI64(&buf, cachedAt.Unix())
	src := []byte(t.Source)
	writeU16(&buf, uint16(len(src)))
	buf.Write(src)
	writeU32(&buf, uint32(len(t.Rows)))
	for _, c := range t.Rows {
		writeI64(&buf, c.Time.UnixMilli())
		writeF64(&buf, c.Open)
		writeF64(&buf, c.High)
		writeF64(&buf, c.Low)
		writeF64(&buf, c.Close)
		writeF64(&buf, c.Volume)
	}
	return buf.Bytes()
}

func Decode(payload []byte) (market.Table, Meta, error) {
	meta, body, err := decodeHeader(payload)
	if err != nil {
		return market.Table{}, Meta{}, err
	}
	rows := make([]market.Candle, 0, meta.Rows)
	r := bytes.NewReader(body)
	for i := 0; i < meta.Rows; i++ {
		var ms int64
		var vals [5]float64
		if err := binary.Read(r, binary.LittleEndian, &ms); err != nil {
			return market.Table{}, Meta{}, fmt.Errorf("row %d: %w", i, err)
		}
		for j := range vals {
			if err := binary.Read(r, binary.LittleEndian, &vals[j]); err != nil {
				return market.Table{}, Meta{}, fmt.Errorf("row %d: %w", i, err)
			}
		}
		rows = append(rows, market.Candle{
			Time:   time.UnixMilli(ms).UTC(),
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}
	return market.Table{Source: meta.Provider, Rows: rows}, meta, nil
}

// PeekMeta reads the artifact header without decoding the rows.
func PeekMeta(payload []byte) (Meta, bool) {
	meta, _, err := decodeHeader(payload)
	if err != nil {
		return Meta{}, false
	}
	return meta, true
}

func decodeHeader(payload []byte) (Meta, []byte, error) {
	if len(payload) < len(codecMagic)+1+8+2 {
		return Meta{}, nil, fmt.Errorf("artifact too short (%d bytes)", len(payload))
	}
	if string(payload[:4]) != codecMagic {
		return Meta{}, nil, fmt.Errorf("bad magic %q", payload[:4])
	}
	if payload[4] != codecVersion {
		return Meta{}, nil, fmt.Errorf("unsupported version %d", payload[4])
	}
	cachedAt := int64(binary.LittleEndian.Uint64(payload[5:13]))
	srcLen := int(binary.LittleEndian.Uint16(payload[13:15]))
	if len(payload) < 15+srcLen+4 {
		return Meta{}, nil, fmt.Errorf("truncated header")
	}
	source := string(payload[15 : 15+srcLen])
	rows := int(binary.LittleEndian.Uint32(payload[15+srcLen : 15+srcLen+4]))
	body := payload[15+srcLen+4:]
	if want := rows * (8 + 5*8); len(body) < want {
		return Meta{}, nil, fmt.Errorf("truncated body: want %d bytes, have %d", want, len(body))
	}
	return Meta{CachedAt: cachedAt, Provider: source, Rows: rows}, body, nil
}

func writeI64(buf *bytes.Buffer, v int64) { _ = binary.Write(buf, binary.LittleEndian, v) }
func writeU16(buf *bytes.Buffer, v uint16) { _ = binary.Write(buf, binary.LittleEndian, v) }
func writeU32(buf *bytes.Buffer, v uint32) { _ = binary.Write(buf, binary.LittleEndian, v) }
func writeF64(buf *bytes.Buffer, v float64) { _ = binary.Write(buf, binary.LittleEndian, v) }

// EncodeCSV renders the plain-text fallback artifact:
// time,open,high,low,close,volume with RFC3339 stamps and an empty volume
// cell when the source reported none.
func EncodeCSV(t market.Table) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"time", "open", "high", "low", "close", "volume"})
	for _, c := range t.Rows {
		vol := ""
		if c.HasVolume() {
			vol = strconv.FormatFloat(c.Volume, 'f', -1, 64)
		}
		_ = w.Write([]string{
			c.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(c.Open, 'f', -1, 64),
			strconv.FormatFloat(c.High, 'f', -1, 64),
			strconv.FormatFloat(c.Low, 'f', -1, 64),
			strconv.FormatFloat(c.Close, 'f', -1, 64),
			vol,
		})
	}
	w.Flush()
	return buf.Bytes()
}

func DecodeCSV(payload []byte) (market.Table, error) {
	records, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	if err != nil {
		return market.Table{}, err
	}
	rows := make([]market.Candle, 0, len(records))
	for i, rec := range records {
		if i == 0 || len(rec) < 5 {
			continue
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return market.Table{}, fmt.Errorf("row %d: %w", i, err)
		}
		var vals [4]float64
		for j := 0; j < 4; j++ {
			v, err := strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				return market.Table{}, fmt.Errorf("row %d: %w", i, err)
			}
			vals[j] = v
		}
		vol := math.NaN()
		if len(rec) > 5 && rec[5] != "" {
			if v, err := strconv.ParseFloat(rec[5], 64); err == nil {
				vol = v
			}
		}
		rows = append(rows, market.Candle{
			Time: ts.UTC(), Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vol,
		})
	}
	return market.Table{Rows: rows}, nil
}
