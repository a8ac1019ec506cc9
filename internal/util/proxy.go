package util

import (
	"crypto/rand"
	"math/big"
)

// RandomProxy picks one of the configured proxy URLs, or "" when none are set.
func RandomProxy(proxies []string) string {
	switch len(proxies) {
	case 0:
		return ""
	case 1:
		return proxies[0]
	}
	nBig, err := rand.Int(rand.Reader, big.NewInt(int64(len(proxies))))
	if err != nil {
		return proxies[0]
	}
	return proxies[nBig.Int64()]
}
