package explorer

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

func str(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}

func parseInt64(s string) int64 {
	i, _ := strconv.ParseInt(s, 10, 64)
	return i
}

func parseUint64(s string) uint64 {
	u, _ := strconv.ParseUint(s, 10, 64)
	return u
}

func parseUnixStr(s string) time.Time {
	ts := parseInt64(s)
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

// tokenAmount converts a raw integer amount string to human units.
func tokenAmount(raw string, decimals int) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Shift(int32(-decimals)), nil
}

func abbrev(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + ".." + addr[len(addr)-4:]
}
