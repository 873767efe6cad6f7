package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ORBLab/internal/domain/models"
)

var testRange = models.OpeningRange{Start: at(9, 0), Duration: 5 * time.Minute, High: 101, Low: 100, Size: 1, Bars: 5}

func horizon() time.Time { return testRange.End().Add(time.Hour) }

func TestResolveEntryFillsAtNextOpen(t *testing.T) {
	bars := append(flat(at(9, 0), 5, 100.5),
		bar(at(9, 5), 100.8, 101.3, 100.7, 101.2),
		bar(at(9, 6), 101.4, 101.6, 101.1, 101.5),
	)

	e, reason := ResolveEntry(bars, testRange, FirstClose{}, horizon())
	require.Empty(t, reason)

	assert.Equal(t, models.DirUp, e.Direction)
	assert.Equal(t, at(9, 5), e.ConfirmTime)
	assert.Equal(t, 101.2, e.ConfirmClose)
	assert.Equal(t, at(9, 6), e.FillTime)
	assert.Equal(t, 101.4, e.FillPrice, "fill uses the next bar's open, not the confirming close")
}

func TestResolveEntryDown(t *testing.T) {
	bars := append(flat(at(9, 0), 5, 100.5),
		bar(at(9, 5), 100.4, 100.5, 99.7, 99.8),
		bar(at(9, 6), 99.7, 99.9, 99.5, 99.6),
	)

	e, reason := ResolveEntry(bars, testRange, FirstClose{}, horizon())
	require.Empty(t, reason)
	assert.Equal(t, models.DirDown, e.Direction)
	assert.Equal(t, 99.7, e.FillPrice)
}

func TestResolveEntryWickIsNotConfirmation(t *testing.T) {
	// high pierces the range but the close stays inside
	bars := append(flat(at(9, 0), 5, 100.5),
		bar(at(9, 5), 100.8, 101.9, 100.7, 100.9),
		bar(at(9, 6), 100.9, 101.0, 100.6, 100.7),
	)

	_, reason := ResolveEntry(bars, testRange, FirstClose{}, horizon())
	assert.Equal(t, ReasonNoConfirmation, reason)
}

func TestResolveEntryCloseOnBoundaryIsInside(t *testing.T) {
	bars := append(flat(at(9, 0), 5, 100.5),
		bar(at(9, 5), 100.8, 101.2, 100.7, 101.0),
		bar(at(9, 6), 101.0, 101.0, 100.6, 100.7),
	)

	_, reason := ResolveEntry(bars, testRange, FirstClose{}, horizon())
	assert.Equal(t, ReasonNoConfirmation, reason)
}

func TestResolveEntryNoFillBar(t *testing.T) {
	bars := append(flat(at(9, 0), 5, 100.5),
		bar(at(9, 5), 100.8, 101.3, 100.7, 101.2),
	)

	_, reason := ResolveEntry(bars, testRange, FirstClose{}, horizon())
	assert.Equal(t, ReasonNoFillBar, reason)
}

func TestResolveEntryFillBeyondHorizon(t *testing.T) {
	end := at(9, 6)
	bars := append(flat(at(9, 0), 5, 100.5),
		bar(at(9, 5), 100.8, 101.3, 100.7, 101.2),
		bar(at(9, 6), 101.4, 101.6, 101.1, 101.5),
	)

	_, reason := ResolveEntry(bars, testRange, FirstClose{}, end)
	assert.Equal(t, ReasonNoFillBar, reason)
}

func TestSecondClose(t *testing.T) {
	bars := append(flat(at(9, 0), 5, 100.5),
		bar(at(9, 5), 100.8, 101.3, 100.7, 101.2), // first outside close
		bar(at(9, 6), 101.2, 101.3, 100.6, 100.8), // back inside, resets
		bar(at(9, 7), 100.8, 101.4, 100.8, 101.3),
		bar(at(9, 8), 101.3, 101.6, 101.2, 101.5), // second consecutive
		bar(at(9, 9), 101.6, 101.8, 101.4, 101.7),
	)

	e, reason := ResolveEntry(bars, testRange, SecondClose{}, horizon())
	require.Empty(t, reason)
	assert.Equal(t, at(9, 8), e.ConfirmTime)
	assert.Equal(t, at(9, 9), e.FillTime)
	assert.Equal(t, 101.6, e.FillPrice)
}

func TestSecondCloseRequiresAdjacentBars(t *testing.T) {
	bars := append(flat(at(9, 0), 5, 100.5),
		bar(at(9, 5), 100.8, 101.3, 100.7, 101.2),
		// 09:06 and 09:07 are missing
		bar(at(9, 8), 101.2, 101.4, 101.1, 101.3),
		bar(at(9, 9), 101.3, 101.6, 101.2, 101.5),
		bar(at(9, 10), 101.6, 101.8, 101.4, 101.7),
	)

	e, reason := ResolveEntry(bars, testRange, SecondClose{}, horizon())
	require.Empty(t, reason)
	assert.Equal(t, at(9, 9), e.ConfirmTime)
	assert.Equal(t, at(9, 10), e.FillTime)
}

func TestSecondCloseGapOnlyIsNoConfirmation(t *testing.T) {
	bars := append(flat(at(9, 0), 5, 100.5),
		bar(at(9, 5), 100.8, 101.3, 100.7, 101.2),
		bar(at(9, 7), 101.2, 101.4, 101.1, 101.3),
		bar(at(9, 8), 101.3, 101.4, 100.6, 100.7),
	)

	_, reason := ResolveEntry(bars, testRange, SecondClose{}, horizon())
	assert.Equal(t, ReasonNoConfirmation, reason)
}

func TestSecondCloseSideSwitchResets(t *testing.T) {
	bars := append(flat(at(9, 0), 5, 100.5),
		bar(at(9, 5), 100.8, 101.3, 100.7, 101.2),
		bar(at(9, 6), 101.2, 101.3, 99.6, 99.7),
		bar(at(9, 7), 99.7, 100.3, 99.6, 100.2),
	)

	_, reason := ResolveEntry(bars, testRange, SecondClose{}, horizon())
	assert.Equal(t, ReasonNoConfirmation, reason)
}

func TestAggregatedCloseUsesBucketClose(t *testing.T) {
	bars := append(flat(at(9, 0), 5, 100.5),
		// bucket 09:05-09:10: a base close breaches but the bucket close does not
		bar(at(9, 5), 100.8, 101.3, 100.7, 101.2),
		bar(at(9, 6), 101.2, 101.3, 100.8, 100.9),
		bar(at(9, 7), 100.9, 101.0, 100.8, 100.9),
		bar(at(9, 8), 100.9, 101.0, 100.8, 100.9),
		bar(at(9, 9), 100.9, 101.0, 100.8, 100.9),
		// bucket 09:10-09:15 closes outside
		bar(at(9, 10), 100.9, 101.2, 100.9, 101.1),
		bar(at(9, 11), 101.1, 101.2, 101.0, 101.1),
		bar(at(9, 12), 101.1, 101.2, 101.0, 101.1),
		bar(at(9, 13), 101.1, 101.2, 101.0, 101.1),
		bar(at(9, 14), 101.1, 101.4, 101.1, 101.3),
		bar(at(9, 15), 101.35, 101.5, 101.3, 101.4),
	)

	e, reason := ResolveEntry(bars, testRange, AggregatedClose{Minutes: 5}, horizon())
	require.Empty(t, reason)
	assert.Equal(t, at(9, 14), e.ConfirmTime)
	assert.Equal(t, 101.3, e.ConfirmClose)
	assert.Equal(t, at(9, 15), e.FillTime)
	assert.Equal(t, 101.35, e.FillPrice)
}

func TestAggregatedCloseIncompleteBucket(t *testing.T) {
	// the bucket's last slot never arrives and no later bar exists
	bars := append(flat(at(9, 0), 5, 100.5),
		bar(at(9, 5), 100.8, 101.3, 100.7, 101.2),
		bar(at(9, 6), 101.2, 101.3, 101.1, 101.2),
	)

	_, reason := ResolveEntry(bars, testRange, AggregatedClose{Minutes: 5}, horizon())
	assert.Equal(t, ReasonNoConfirmation, reason)
}

func TestAggregatedCloseGapCompletesBucket(t *testing.T) {
	// 09:08 is the last bar of its bucket; the next bar starts a later bucket
	bars := append(flat(at(9, 0), 5, 100.5),
		bar(at(9, 5), 100.8, 101.0, 100.7, 100.9),
		bar(at(9, 8), 100.9, 101.3, 100.9, 101.2),
		bar(at(9, 11), 101.25, 101.4, 101.2, 101.3),
	)

	e, reason := ResolveEntry(bars, testRange, AggregatedClose{Minutes: 5}, horizon())
	require.Empty(t, reason)
	assert.Equal(t, at(9, 8), e.ConfirmTime)
	assert.Equal(t, at(9, 11), e.FillTime)
	assert.Equal(t, 101.25, e.FillPrice)
}

func TestNewRule(t *testing.T) {
	r, err := NewRule("", 0)
	require.NoError(t, err)
	assert.Equal(t, "E1", r.Code())

	r, err = NewRule(RuleSecondClose, 0)
	require.NoError(t, err)
	assert.Equal(t, "E2", r.Code())

	r, err = NewRule(RuleAggregatedClose, 5)
	require.NoError(t, err)
	assert.Equal(t, "A5", r.Code())

	_, err = NewRule(RuleAggregatedClose, 1)
	assert.Error(t, err)

	_, err = NewRule("third_close", 0)
	assert.Error(t, err)
}
