package feedsim

import (
	"github.com/okian/standings/internal/adapters/source"
	"github.com/okian/standings/internal/config"
	"github.com/okian/standings/internal/domain/scoring"
	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func defaultFeed(id types.DatasetID) source.Feed {
	feeds, err := config.New().SourceFeeds()
	if err != nil {
		panic(err)
	}
	for _, f := range feeds {
		if f.Dataset == id {
			return f
		}
	}
	panic("no default feed for " + string(id))
}

func defaultScorer() *scoring.Engine {
	return scoring.NewEngine(config.New().ScoringOptions()...)
}
