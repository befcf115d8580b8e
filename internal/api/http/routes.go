package httpapi

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/air-quality-aggregation/internal/airquality"
	"github.com/i474232898/air-quality-aggregation/internal/geo"
	"github.com/i474232898/air-quality-aggregation/internal/store"
	"github.com/i474232898/air-quality-aggregation/internal/ward"
)

var validate = validator.New()

const refreshTimeout = 3 * time.Minute

type BoardReader interface {
	Latest() (ward.Board, error)
	Ward(id int) (ward.Ward, error)
}

type Refresher interface {
	Refresh(ctx context.Context, force bool) (ward.Board, error)
}

type StatusReporter interface {
	Status() airquality.Status
}

type Estimator interface {
	Estimate(lat, lon float64, stations []airquality.StationReading) airquality.WardEstimate
}

type PlaceResolver interface {
	Resolve(place string) (float64, float64, error)
}

// Service bundles what the handlers read from and act on.
type Service struct {
	Boards    BoardReader
	Refresher Refresher
	Sources   StatusReporter
	Estimator Estimator
	// Places is optional; without it the estimate endpoint only takes coordinates.
	Places PlaceResolver
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/stations", func(c *fiber.Ctx) error {
		board, err := latestBoard(svc.Boards)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"source":      board.DataSource,
			"count":       len(board.Stations),
			"stations":    board.Stations,
			"last_update": board.UpdatedAt,
		})
	})

	v1.Get("/sources", func(c *fiber.Ctx) error {
		return c.JSON(svc.Sources.Status())
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), refreshTimeout)
		defer cancel()

		board, err := svc.Refresher.Refresh(ctx, true)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to refresh ward data")
		}
		return c.JSON(fiber.Map{
			"status":         "refreshed",
			"cycle_id":       board.CycleID,
			"data_source":    board.DataSource,
			"stations_count": len(board.Stations),
			"wards_count":    len(board.Wards),
			"timestamp":      board.UpdatedAt,
		})
	})

	v1.Get("/wards", func(c *fiber.Ctx) error {
		board, err := latestBoard(svc.Boards)
		if err != nil {
			return err
		}
		out := make([]wardSummary, 0, len(board.Wards))
		for _, w := range board.Wards {
			out = append(out, summarize(w))
		}
		return c.JSON(out)
	})

	v1.Get("/wards/:id", func(c *fiber.Ctx) error {
		w, board, err := lookupWard(c, svc.Boards)
		if err != nil {
			return err
		}
		return c.JSON(wardDetail{
			wardSummary: summarize(w),
			Pollutants:  w.Pollutants,
			DataSource:  board.DataSource,
			LastUpdated: board.UpdatedAt,
		})
	})

	v1.Get("/wards/:id/pollutants", func(c *fiber.Ctx) error {
		w, _, err := lookupWard(c, svc.Boards)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"ward_id":    w.ID,
			"ward_name":  w.Name,
			"aqi":        w.AQI,
			"pollutants": w.Pollutants,
		})
	})

	v1.Get("/estimate", func(c *fiber.Ctx) error {
		var q estimateQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		lat, lon, err := q.resolve(svc.Places)
		if err != nil {
			return err
		}

		board, err := latestBoard(svc.Boards)
		if err != nil {
			return err
		}

		est := svc.Estimator.Estimate(lat, lon, board.Stations)
		return c.JSON(fiber.Map{
			"place":       q.Place,
			"lat":         est.Lat,
			"lon":         est.Lon,
			"aqi":         est.AQI,
			"color_code":  ward.Category(est.AQI),
			"pollutants":  est.Pollutants,
			"data_source": board.DataSource,
		})
	})

	v1.Get("/stats", func(c *fiber.Ctx) error {
		board, err := latestBoard(svc.Boards)
		if err != nil {
			return err
		}
		return c.JSON(board.Stats())
	})
}

type wardSummary struct {
	ID          int              `json:"id"`
	Name        string           `json:"name"`
	WardNo      string           `json:"ward_no"`
	Coordinates ward.Coordinates `json:"coordinates"`
	AQI         int              `json:"aqi"`
	ColorCode   string           `json:"color_code"`
}

type wardDetail struct {
	wardSummary
	Pollutants  map[airquality.Pollutant]*float64 `json:"pollutants"`
	DataSource  ward.DataSource                   `json:"data_source"`
	LastUpdated time.Time                         `json:"last_updated"`
}

func summarize(w ward.Ward) wardSummary {
	return wardSummary{
		ID:          w.ID,
		Name:        w.Name,
		WardNo:      w.WardNo,
		Coordinates: w.Coordinates,
		AQI:         w.AQI,
		ColorCode:   w.ColorCode,
	}
}

func latestBoard(boards BoardReader) (ward.Board, error) {
	board, err := boards.Latest()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ward.Board{}, fiber.NewError(fiber.StatusNotFound, "ward data not available yet")
		}
		return ward.Board{}, fiber.NewError(fiber.StatusInternalServerError, "failed to load ward data")
	}
	return board, nil
}

// wardPath holds the :id route parameter.
type wardPath struct {
	ID int `validate:"gte=1"`
}

func lookupWard(c *fiber.Ctx, boards BoardReader) (ward.Ward, ward.Board, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return ward.Ward{}, ward.Board{}, fiber.NewError(fiber.StatusBadRequest, "ward id must be an integer")
	}
	if err := validate.Struct(wardPath{ID: id}); err != nil {
		return ward.Ward{}, ward.Board{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	board, err := latestBoard(boards)
	if err != nil {
		return ward.Ward{}, ward.Board{}, err
	}
	w, ok := board.Ward(id)
	if !ok {
		return ward.Ward{}, ward.Board{}, fiber.NewError(fiber.StatusNotFound, "ward with ID "+strconv.Itoa(id)+" not found")
	}
	return w, board, nil
}

// estimateQuery takes either coordinates or a place name.
type estimateQuery struct {
	Lat   *float64 `validate:"required_without=Place,omitempty,gte=-90,lte=90"`
	Lon   *float64 `validate:"required_without=Place,omitempty,gte=-180,lte=180"`
	Place string   `validate:"required_without_all=Lat Lon,omitempty,max=200"`
}

func (q *estimateQuery) bind(c *fiber.Ctx) error {
	var err error
	if q.Lat, err = optionalFloat(c.Query("lat")); err != nil {
		return errors.New("lat must be a number")
	}
	if q.Lon, err = optionalFloat(c.Query("lon")); err != nil {
		return errors.New("lon must be a number")
	}
	q.Place = strings.TrimSpace(c.Query("place"))
	return nil
}

// resolve prefers explicit coordinates over the place name.
func (q estimateQuery) resolve(places PlaceResolver) (float64, float64, error) {
	if q.Lat != nil && q.Lon != nil {
		return *q.Lat, *q.Lon, nil
	}
	if places == nil {
		return 0, 0, fiber.NewError(fiber.StatusNotImplemented, "place lookup is not configured")
	}

	lat, lon, err := places.Resolve(q.Place)
	switch {
	case err == nil:
		return lat, lon, nil
	case errors.Is(err, geo.ErrDisabled):
		return 0, 0, fiber.NewError(fiber.StatusNotImplemented, "place lookup is not configured")
	default:
		return 0, 0, fiber.NewError(fiber.StatusNotFound, "place not found")
	}
}

func optionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
