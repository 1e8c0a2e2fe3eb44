// Package seed loads the parish supply register and demo accounts into an
// empty database so a fresh deployment is immediately usable.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rgayle/waterwatch/internal/models"
	"github.com/rgayle/waterwatch/internal/repository"
)

type seedUser struct {
	username string
	password string
	role     models.Role
	fullName string
	parish   string
}

// Demo credentials for the pilot parishes. Replaced by real account
// provisioning before any production rollout.
var seedUsers = []seedUser{
	{"admin", "admin123", models.RoleAdmin, "System Administrator", "Westmoreland"},
	{"admin2", "admin123", models.RoleAdmin, "Senior Administrator", "Trelawny"},
	{"inspector", "inspector123", models.RoleInspector, "Water Quality Inspector", "Westmoreland"},
	{"inspector2", "inspector123", models.RoleInspector, "Field Inspector B", "Trelawny"},
}

type seedSupply struct {
	name   string
	kind   models.SupplyKind
	agency string
	loc    string
	parish string
}

// The pilot register covers the Westmoreland and Trelawny monitoring
// programmes.
var seedSupplies = []seedSupply{
	{"Roaring River I & II", models.SupplyTreated, "NWC", "Savanna-la-Mar", "Westmoreland"},
	{"Bullstrode", models.SupplyTreated, "NWC", "Bullstrode", "Westmoreland"},
	{"Dean's Valley", models.SupplyUntreated, "NWC", "Dean's Valley", "Westmoreland"},
	{"Carawina", models.SupplyUntreated, "NWC", "Carawina", "Westmoreland"},
	{"Williamsfield/Venture", models.SupplyUntreated, "NWC", "Venture", "Westmoreland"},
	{"Bluefields", models.SupplyTreated, "NWC", "Bluefields", "Westmoreland"},
	{"Jerusalem Mountains", models.SupplyUntreated, "PC", "Jerusalem Mountains", "Westmoreland"},
	{"Cave", models.SupplyUntreated, "PC", "Cave", "Westmoreland"},
	{"Friendship", models.SupplyUntreated, "PC", "Friendship", "Westmoreland"},
	{"Negril/Logwood", models.SupplyTreated, "NWC", "Negril", "Westmoreland"},
	{"Bethel Town/Cambridge", models.SupplyTreated, "NWC", "Bethel Town", "Westmoreland"},
	{"Paradise Farm", models.SupplyUntreated, "Private", "Paradise Farm", "Westmoreland"},
	{"Petersville", models.SupplyUntreated, "PC", "Petersville", "Westmoreland"},
	{"Dantrout", models.SupplyTreated, "NWC", "Dantrout", "Westmoreland"},

	{"Rio Bueno", models.SupplyTreated, "NWC", "Rio Bueno", "Trelawny"},
	{"Duncans", models.SupplyTreated, "NWC", "Duncans", "Trelawny"},
	{"Falmouth", models.SupplyTreated, "NWC", "Falmouth", "Trelawny"},
	{"Wakefield", models.SupplyTreated, "NWC", "Wakefield", "Trelawny"},
	{"Bounty Hall", models.SupplyTreated, "NWC", "Bounty Hall", "Trelawny"},
	{"Springvale", models.SupplyTreated, "NWC", "Springvale", "Trelawny"},
	{"Albert Town", models.SupplyTreated, "PC", "Albert Town", "Trelawny"},
	{"Silver Sands", models.SupplyTreated, "PC", "Silver Sands", "Trelawny"},
	{"Lorrimers", models.SupplyTreated, "PC", "Lorrimers", "Trelawny"},
	{"Bengal", models.SupplyTreated, "PC", "Bengal", "Trelawny"},
	{"Martha Brae", models.SupplyUntreated, "PC", "Martha Brae", "Trelawny"},
	{"Clarks Town", models.SupplyUntreated, "PC", "Clarks Town", "Trelawny"},
	{"Wait-a-Bit", models.SupplyUntreated, "PC", "Wait-a-Bit", "Trelawny"},
	{"Deeside", models.SupplyUntreated, "PC", "Deeside", "Trelawny"},
	{"Sherwood Content", models.SupplyUntreated, "PC", "Sherwood Content", "Trelawny"},
	{"Salem", models.SupplyUntreated, "PC", "Salem", "Trelawny"},
	{"Refuge", models.SupplyUntreated, "PC", "Refuge", "Trelawny"},
	{"Ulster Spring", models.SupplyUntreated, "PC", "Ulster Spring", "Trelawny"},
	{"Good Hope", models.SupplyUntreated, "PC", "Good Hope", "Trelawny"},
	{"Bunkers Hill", models.SupplyUntreated, "PC", "Bunkers Hill", "Trelawny"},
	{"Kettering", models.SupplyUntreated, "PC", "Kettering", "Trelawny"},
	{"Troy", models.SupplyUntreated, "PC", "Troy", "Trelawny"},
	{"Harmony Cove Resort", models.SupplyTreated, "Private", "Harmony Cove", "Trelawny"},
	{"Trelawny Beach Hotel", models.SupplyTreated, "Private", "Falmouth", "Trelawny"},
}

// Run populates users and supplies when their tables are empty. It is
// idempotent across restarts: a non-empty table is left untouched.
func Run(ctx context.Context, users repository.UserRepository, supplies repository.SupplyRepository, logger *zap.Logger) error {
	userCount, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("seed: count users: %w", err)
	}
	if userCount == 0 {
		for _, su := range seedUsers {
			hash, err := bcrypt.GenerateFromPassword([]byte(su.password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("seed: hash password for %s: %w", su.username, err)
			}
			u := &models.User{
				ID:           uuid.New(),
				Username:     su.username,
				PasswordHash: string(hash),
				Role:         su.role,
				FullName:     su.fullName,
				Parish:       su.parish,
				CreatedAt:    time.Now().UTC(),
			}
			if err := users.Create(ctx, u); err != nil {
				return fmt.Errorf("seed: create user %s: %w", su.username, err)
			}
		}
		logger.Info("seeded demo users", zap.Int("count", len(seedUsers)))
	}

	supplyCount, err := supplies.Count(ctx)
	if err != nil {
		return fmt.Errorf("seed: count supplies: %w", err)
	}
	if supplyCount == 0 {
		for _, ss := range seedSupplies {
			s := &models.Supply{
				ID:        uuid.New(),
				Name:      ss.name,
				Kind:      ss.kind,
				Agency:    ss.agency,
				Location:  ss.loc,
				Parish:    ss.parish,
				CreatedAt: time.Now().UTC(),
			}
			if err := supplies.Create(ctx, s); err != nil {
				return fmt.Errorf("seed: create supply %s: %w", ss.name, err)
			}
		}
		logger.Info("seeded supply register", zap.Int("count", len(seedSupplies)))
	}

	return nil
}
