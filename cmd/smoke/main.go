package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"ticketing/internal/shared/config"
	"ticketing/internal/shared/constants"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type SmokeSuite struct {
	BaseURL string
	Secret  string
	Redis   *redis.Client
	client  *http.Client
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	baseURL := flag.String("base-url", "http://localhost:"+cfg.Port+cfg.GetAPIBasePath(), "API base URL")
	eventID := flag.String("event", "", "event to exercise (required)")
	racers := flag.Int("racers", 20, "concurrent customers competing for one seat")
	flag.Parse()

	if _, err := uuid.Parse(*eventID); err != nil {
		log.Fatalf("❌ -event must be an event id: %v", err)
	}

	suite := &SmokeSuite{
		BaseURL: *baseURL,
		Secret:  cfg.JWT.Secret,
		Redis: redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}),
		client: &http.Client{Timeout: 10 * time.Second},
	}
	defer suite.Redis.Close()

	fmt.Println("🧪 Starting seat inventory smoke test...")
	fmt.Println("=======================================")

	ctx := context.Background()
	if err := suite.Redis.Ping(ctx).Err(); err != nil {
		fmt.Printf("⚠️  Redis unreachable, cache checks skipped: %v\n", err)
		suite.Redis = nil
	} else {
		fmt.Println("✅ Redis connection: OK")
	}

	if err := suite.checkSeatMapCache(ctx, *eventID); err != nil {
		log.Fatalf("❌ Seat map check failed: %v", err)
	}
	if err := suite.raceForSeat(ctx, *eventID, *racers); err != nil {
		log.Fatalf("❌ Reservation race failed: %v", err)
	}

	fmt.Println("\n🎉 Smoke test complete!")
}

// checkSeatMapCache loads the seat map twice and verifies the first read
// populated the cache
func (s *SmokeSuite) checkSeatMapCache(ctx context.Context, eventID string) error {
	fmt.Println("\n🔍 Seat map caching")

	path := "/seats/event/" + eventID + "/map"
	first, _, err := s.timed(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	second, _, err := s.timed(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	fmt.Printf("   📈 %v -> %v\n", first, second)

	if s.Redis == nil {
		return nil
	}
	ttl, err := s.Redis.TTL(ctx, constants.BuildSeatMapKey(eventID)).Result()
	if err != nil {
		return err
	}
	if ttl <= 0 {
		fmt.Println("   ❓ seat map key not cached (CACHE_ENABLED off?)")
		return nil
	}
	fmt.Printf("   🔥 seat map cached, ttl %v\n", ttl)
	return nil
}

// raceForSeat has many customers reserve the same available seat at once.
// Exactly one may win; the rest must see 409.
func (s *SmokeSuite) raceForSeat(ctx context.Context, eventID string, racers int) error {
	fmt.Printf("\n🏁 %d customers racing for one seat\n", racers)

	_, body, err := s.timed(ctx, http.MethodGet, "/seats/event/"+eventID+"?status=available&limit=1", "", nil)
	if err != nil {
		return err
	}
	var list struct {
		Seats []struct {
			ID uuid.UUID `json:"id"`
		} `json:"seats"`
	}
	if err := json.Unmarshal(body.Data, &list); err != nil {
		return err
	}
	if len(list.Seats) == 0 {
		return fmt.Errorf("event %s has no available seats", eventID)
	}
	seatID := list.Seats[0].ID

	var winners, losers atomic.Int32
	var winnerToken atomic.Value
	var winnerHold atomic.Value

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < racers; i++ {
		g.Go(func() error {
			token, err := s.customerToken(uuid.New())
			if err != nil {
				return err
			}
			code, env, err := s.do(gctx, http.MethodPost, "/seats/reserve", token, map[string]interface{}{
				"eventId": eventID,
				"seatIds": []uuid.UUID{seatID},
			})
			if err != nil {
				return err
			}
			switch code {
			case http.StatusCreated:
				winners.Add(1)
				var reserved struct {
					ReservationID uuid.UUID `json:"reservationId"`
				}
				if err := json.Unmarshal(env.Data, &reserved); err != nil {
					return err
				}
				winnerToken.Store(token)
				winnerHold.Store(reserved.ReservationID)
			case http.StatusConflict:
				losers.Add(1)
			default:
				return fmt.Errorf("unexpected status %d: %s", code, env.Message)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("   🥇 winners: %d, 🚫 conflicts: %d\n", winners.Load(), losers.Load())
	if winners.Load() != 1 {
		return fmt.Errorf("expected exactly one winner, got %d", winners.Load())
	}

	code, env, err := s.do(ctx, http.MethodPost, "/seats/release", winnerToken.Load().(string), map[string]interface{}{
		"reservationId": winnerHold.Load().(uuid.UUID),
	})
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("release returned %d: %s", code, env.Message)
	}
	fmt.Println("   ✅ winning hold released")
	return nil
}

func (s *SmokeSuite) customerToken(userID uuid.UUID) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"role":    "customer",
		"type":    "access",
		"exp":     time.Now().Add(15 * time.Minute).Unix(),
	}).SignedString([]byte(s.Secret))
}

func (s *SmokeSuite) timed(ctx context.Context, method, path, token string, payload interface{}) (time.Duration, envelope, error) {
	start := time.Now()
	code, env, err := s.do(ctx, method, path, token, payload)
	elapsed := time.Since(start)
	if err != nil {
		return elapsed, env, err
	}
	if code >= http.StatusBadRequest {
		return elapsed, env, fmt.Errorf("%s %s returned %d: %s", method, path, code, env.Message)
	}
	return elapsed, env, nil
}

func (s *SmokeSuite) do(ctx context.Context, method, path, token string, payload interface{}) (int, envelope, error) {
	var env envelope

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, env, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, reader)
	if err != nil {
		return 0, env, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, env, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return resp.StatusCode, env, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return resp.StatusCode, env, nil
}
