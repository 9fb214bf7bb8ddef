package middleware

import (
	"github.com/MicahParks/keyfunc/v3"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/act-placemat/loom/pkg/store"
	graphstorage "github.com/act-placemat/loom/pkg/store/pgx"
)

type AppUser struct {
	UserID      string
	Role        string
	Permissions []string
}

type App struct {
	DBConn         *pgxpool.Pool
	Store          store.Store
	Queue          *amqp091.Channel
	Key            *keyfunc.Keyfunc
	S3             *s3.Client
	MasterAPIKey   string
	MasterUserID   string
	MasterUserRole string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(
	db *pgxpool.Pool,
	queue *amqp091.Channel,
	key *keyfunc.Keyfunc,
	s3 *s3.Client,
	masterAPIKey string,
	masterUserID string,
	masterUserRole string,
) echo.MiddlewareFunc {
	app := &App{
		DBConn:         db,
		Store:          graphstorage.NewGraphDBStoreWithConnection(db),
		Queue:          queue,
		Key:            key,
		S3:             s3,
		MasterAPIKey:   masterAPIKey,
		MasterUserID:   masterUserID,
		MasterUserRole: masterUserRole,
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{
				Context: c,
				App:     app,
			}
			return next(cc)
		}
	}
}
