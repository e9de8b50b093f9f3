package trend

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDropsStopwordsAndShortTokens(t *testing.T) {
	got := Normalize("a tool for the deploys", "it is on fire")
	// "a", "for", "the", "on" are stopwords; "it", "is" are too short.
	assert.Equal(t, "deploys fire tool", got)
}

func TestNormalizeIsCaseAndOrderInsensitive(t *testing.T) {
	a := Normalize("Automate Kubernetes deployments", "teams waste hours")
	b := Normalize("automate kubernetes DEPLOYMENTS", "hours waste teams")
	assert.Equal(t, a, b)
}

func TestNormalizeTruncatesBeforeSorting(t *testing.T) {
	// 25 distinct significant words; only the first 20 count, so changing a
	// word past the cutoff must not change the signature.
	words := []string{
		"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf",
		"hotel", "india", "juliett", "kilo", "lima", "mike", "november",
		"oscar", "papa", "quebec", "romeo", "sierra", "tango", "uniform",
		"victor", "whiskey", "xray", "yankee",
	}
	base := strings.Join(words, " ")

	tail := append([]string{}, words...)
	tail[24] = "zulu"
	modified := strings.Join(tail, " ")

	assert.Equal(t, Normalize(base, ""), Normalize(modified, ""))

	// Changing a word inside the first 20 does change it.
	head := append([]string{}, words...)
	head[0] = "zulu"
	assert.NotEqual(t, Normalize(base, ""), Normalize(strings.Join(head, " "), ""))
}

func TestNormalizeEmptyInput(t *testing.T) {
	assert.Equal(t, "", Normalize("", ""))
	assert.Equal(t, "", Normalize("a an of", "to it"))
}

func TestFingerprintIsStableHex(t *testing.T) {
	sig := Normalize("automate deployments", "")

	first := Fingerprint(sig)
	second := Fingerprint(sig)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
	assert.NotEqual(t, first, Fingerprint("something else"))
}
