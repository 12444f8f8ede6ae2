package collector

import (
	"fmt"
	"math/rand"
)

var platforms = []string{
	"Windows NT 10.0; Win64; x64",
	"Macintosh; Intel Mac OS X 10_15_7",
	"X11; Linux x86_64",
}

// randomUserAgent returns a plausible desktop Chrome user agent.
func randomUserAgent() string {
	version := fmt.Sprintf("%d.0.%d.%d", 115+rand.Intn(4), 5000+rand.Intn(1000), rand.Intn(151))
	platform := platforms[rand.Intn(len(platforms))]
	return fmt.Sprintf("Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36", platform, version)
}
