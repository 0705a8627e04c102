package main

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/xtrntr/auction/internal/auth"
	"github.com/xtrntr/auction/internal/bidding"
	"github.com/xtrntr/auction/internal/biddingerrors"
	"github.com/xtrntr/auction/internal/config"
	"github.com/xtrntr/auction/internal/db"
	"github.com/xtrntr/auction/internal/logger"
	"github.com/xtrntr/auction/internal/models"
)

const demoPassword = "password123"

var demoUsers = []struct{ username, email string }{
	{"collector_john", "john@example.com"},
	{"vintage_sarah", "sarah@example.com"},
	{"antique_mike", "mike@example.com"},
	{"art_lover", "artlover@example.com"},
	{"treasure_hunter", "treasure@example.com"},
}

var demoItems = []struct {
	name, description, price string
	endsIn                   time.Duration
}{
	{"George Condo - Lost in Time (2024)", "Acrylic, oil and pigment stick on linen.", "500000000", 24 * time.Hour},
	{"Banksy - Girl with Balloon (2004)", "Screenprint in colours, signed and numbered.", "18500000000", 48 * time.Hour},
	{"Yayoi Kusama - Flowers (2005)", "Screenprint, signed, titled and dated.", "300200000", 72 * time.Hour},
	{"Grayson Perry - Vote for Me (2023)", "Glazed ceramic vase.", "12000000", 24 * time.Hour},
	{"Keith Haring - Lucky Strike (1987)", "Screenprint in colours on Lenox Museum Board.", "100500000", 48 * time.Hour},
	{"Yoshitomo Nara - Balance Girl (2014)", "Bronze with patina.", "2000500000", 72 * time.Hour},
	{"Yoshitomo Nara - After the Acid Rain (2010)", "Colour lithograph.", "150000000", 24 * time.Hour},
	{"Yoshitomo Nara - What's Going On (1999)", "Acrylic on paper.", "2005000000", 48 * time.Hour},
}

// discardBroadcaster drops room events; nobody is connected while seeding
type discardBroadcaster struct{}

func (discardBroadcaster) BroadcastBid(models.BidEvent) {}

// Seed the database with demo users, items and bid histories
func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML config file")
	bidsPerItem := pflag.Int("bids-per-item", 3, "number of demo bids placed on each item")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(cfg.Log.Level, "text")
	ctx := context.Background()

	// Connect to database
	database, err := db.NewDB(ctx, cfg.Storage.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer database.Close(ctx)
	if err := database.Migrate(ctx); err != nil {
		log.WithError(err).Fatal("failed to apply migrations")
	}

	// First check if we already have items
	_, total, err := database.ListItems(ctx, models.ItemFilter{Limit: 1})
	if err != nil {
		log.WithError(err).Fatal("failed to check items")
	}
	if total > 0 {
		log.WithField("items", total).Info("database already has items, no need to seed")
		return
	}

	authService := auth.NewAuthService(database, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	var bidders []models.Bidder
	for _, u := range demoUsers {
		user, err := authService.Register(ctx, u.username, u.email, demoPassword)
		if errors.Is(err, biddingerrors.ErrUserExists) {
			user, err = database.GetUserByEmail(ctx, u.email)
		}
		if err != nil {
			log.WithError(err).WithField("username", u.username).Fatal("failed to create user")
		}
		bidders = append(bidders, user.Bidder())
	}

	pipeline := bidding.NewPipeline(database, bidding.NewValidator(time.Now), discardBroadcaster{}, log)
	step := decimal.RequireFromString("1.05")

	for i, d := range demoItems {
		endTime := time.Now().Add(d.endsIn).UTC()
		item, err := database.CreateItem(ctx, &models.Item{
			Name:          d.name,
			Description:   d.description,
			StartingPrice: decimal.RequireFromString(d.price),
			EndTime:       &endTime,
		})
		if err != nil {
			log.WithError(err).WithField("item", d.name).Fatal("failed to create item")
		}

		// Each bid beats the previous one by 5%, rotating through bidders
		price := item.StartingPrice
		for n := 0; n < *bidsPerItem; n++ {
			price = price.Mul(step).Round(0)
			bidder := bidders[(i+n)%len(bidders)]
			if _, err := pipeline.PlaceBid(ctx, item.ID, bidder, price); err != nil {
				log.WithError(err).WithField("item_id", item.ID).Fatal("failed to place bid")
			}
		}
	}

	log.WithFields(logrus.Fields{
		"users": len(bidders),
		"items": len(demoItems),
	}).Infof("seeded demo data; every user's password is %q", demoPassword)
}
