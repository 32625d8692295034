package engine

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/talgya/authorsim/internal/authors"
)

// LogObserver writes simulation notifications to slog.
type LogObserver struct {
	Logger *slog.Logger
}

// NewLogObserver returns an observer logging to logger, or to the default
// logger when nil.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{Logger: logger}
}

func (l *LogObserver) PopulationSeeded(ev SeededEvent) {
	st := computeStats(ev.Authors)
	l.Logger.Info("population seeded",
		"run", ev.RunID,
		"authors", humanize.Comma(int64(len(ev.Authors))),
		"mean_power", fmt.Sprintf("%.3f", st.MeanPower),
		"gifted", st.Classes[authors.ClassGifted],
		"critic", st.Classes[authors.ClassCritic],
	)
}

func (l *LogObserver) TickCompleted(ev TickEvent) {
	l.Logger.Debug("tick completed",
		"year", ev.Year,
		"generation", ev.Generation,
		"population", ev.Population,
	)
}

func (l *LogObserver) GenerationChanged(ev GenerationEvent) {
	st := computeStats(ev.Born)
	l.Logger.Info(humanize.Ordinal(ev.Generation)+" generation",
		"year", ev.Year,
		"candidates", humanize.Comma(int64(ev.Candidates)),
		"survivors", humanize.Comma(int64(len(ev.Born))),
		"culled", humanize.Comma(int64(len(ev.Culled))),
		"discarded", humanize.Comma(int64(len(ev.Discarded))),
		"mean_power", fmt.Sprintf("%.3f", st.MeanPower),
		"mean_talent", fmt.Sprintf("%.3f", st.MeanTalent),
		"mean_res", fmt.Sprintf("%.3f", st.MeanResponsiveness),
		"gifted", st.Classes[authors.ClassGifted],
		"critic", st.Classes[authors.ClassCritic],
		"banal", st.Classes[authors.ClassBanal],
	)
	if ev.Finished {
		l.Logger.Info("generation limit reached", "run", ev.RunID, "year", ev.Year)
	}
}
