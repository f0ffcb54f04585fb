package deps

import (
	"github.com/planetcalm/petmap/config"
	"github.com/planetcalm/petmap/internal/db"
	"github.com/planetcalm/petmap/internal/http/highlevel"
	"github.com/planetcalm/petmap/internal/http/mapbox"
	"github.com/planetcalm/petmap/util/websockets"
	"github.com/rs/zerolog"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Dependencies struct {
	DB        *db.DB
	Mapbox    *mapbox.Client
	HighLevel *highlevel.Client
	WebSocket *websockets.Manager
	Log       zerolog.Logger
}

func New(cfg *config.Config, log zerolog.Logger) (*Dependencies, error) {
	database, err := db.New(cfg.Dsn)
	if err != nil {
		return nil, err
	}

	deps := Dependencies{
		DB:        database,
		Mapbox:    mapbox.New(cfg.MapboxAccessToken, cfg.GeocodeTimeout),
		HighLevel: highlevel.New(cfg.HighLevelWebhookURL, log),
		WebSocket: websockets.NewManager(log),
		Log:       log,
	}
	return &deps, nil
}

func (d *Dependencies) Pool() *pgxpool.Pool {
	return d.DB.Pool()
}
