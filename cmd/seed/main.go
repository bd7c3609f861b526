// Package main seeds the database with demo forum content.
//
// It signs in a handful of demo identities and has them post topics, reply
// to each other, like and bookmark, going through the same services the
// API uses so counters, notifications and the search index stay
// consistent. Stop the server first: the database allows one process.
//
// Usage:
//
//	DATA_PATH=~/Wellspring/data go run ./cmd/seed
//	DATA_PATH=~/Wellspring/data go run ./cmd/seed --topics 40
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/wellspringapp/wellspring-server/internal/domain"
	"github.com/wellspringapp/wellspring-server/internal/logger"
	"github.com/wellspringapp/wellspring-server/internal/search"
	"github.com/wellspringapp/wellspring-server/internal/service"
	"github.com/wellspringapp/wellspring-server/internal/store"
	"github.com/wellspringapp/wellspring-server/internal/validation"
)

var (
	topicCount = flag.Int("topics", 20, "Number of topics to create")
	maxReplies = flag.Int("max-replies", 6, "Maximum replies per topic")
)

var demoIdentities = []domain.Identity{
	{ID: "demo-maya", Name: "Maya Chen", Email: "maya@example.com"},
	{ID: "demo-omar", Name: "Omar Haddad", Email: "omar@example.com"},
	{ID: "demo-lena", Name: "Lena Fischer", Email: "lena@example.com"},
	{ID: "demo-sam", Name: "Sam Okafor", Email: "sam@example.com"},
	{ID: "demo-ines", Name: "Inês Duarte", Email: "ines@example.com"},
}

var demoTopics = []struct {
	title    string
	category domain.Category
	tags     []string
}{
	{"Best high-protein breakfasts?", domain.CategoryNutrition, []string{"breakfast", "protein"}},
	{"Couch to 5k week 3 check-in", domain.CategoryFitness, []string{"running", "c25k"}},
	{"Box breathing before meetings", domain.CategoryMindfulness, []string{"breathing", "work"}},
	{"Waking up at 3am every night", domain.CategorySleep, []string{"insomnia"}},
	{"One-pot lentil curry", domain.CategoryRecipes, []string{"vegan", "meal prep"}},
	{"Rough week, could use encouragement", domain.CategorySupport, []string{"motivation"}},
	{"Introduce yourself!", domain.CategoryGeneral, []string{"welcome"}},
	{"Mobility routine for desk workers", domain.CategoryFitness, []string{"stretching", "posture"}},
}

var demoReplies = []string{
	"This is really helpful, thank you for sharing.",
	"I tried this last week and it made a real difference.",
	"Have you talked to anyone about this? You are not alone.",
	"Same here! Following for more ideas.",
	"Great question. What worked for me was starting small.",
	"Saving this one for later.",
}

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to resolve home directory: %v", err)
		}
		dataPath = filepath.Join(home, "Wellspring", "data")
	}

	appLog := logger.New(logger.Config{Environment: "development"})

	st, err := store.New(filepath.Join(dataPath, "db"), appLog.Logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	index, err := search.NewIndex(search.Options{DataPath: filepath.Join(dataPath, "search"), Logger: appLog.Logger})
	if err != nil {
		log.Fatalf("Failed to open search index: %v", err)
	}
	searchService := search.NewService(index, nil, appLog.Logger)
	defer searchService.Close()

	v := validation.New()
	notifications := service.NewNotificationService(st, appLog.Logger)
	profiles := service.NewProfileService(st, v, nil, appLog.Logger)
	topics := service.NewTopicService(st, searchService, nil, notifications, v, appLog.Logger)
	replies := service.NewReplyService(st, notifications, v, appLog.Logger)

	ctx := context.Background()

	users := make([]*domain.Profile, 0, len(demoIdentities))
	for _, identity := range demoIdentities {
		p, err := profiles.EnsureProfile(ctx, identity)
		if err != nil {
			log.Fatalf("Failed to create profile %s: %v", identity.ID, err)
		}
		users = append(users, p)
	}
	fmt.Printf("Seeded %d profiles\n", len(users))

	rng := rand.New(rand.NewPCG(uint64(len(users)), uint64(*topicCount)))

	var created, replied int
	for n := range *topicCount {
		tpl := demoTopics[n%len(demoTopics)]
		author := users[rng.IntN(len(users))]

		topic, err := topics.CreateTopic(ctx, author, service.CreateTopicRequest{
			Title:    tpl.title,
			Content:  fmt.Sprintf("%s\n\nPosted by %s.", tpl.title, author.Username),
			Category: string(tpl.category),
			Tags:     tpl.tags,
		}, "")
		if err != nil {
			log.Printf("Failed to create topic %q: %v", tpl.title, err)
			continue
		}
		created++

		var last *domain.Reply
		for range rng.IntN(*maxReplies + 1) {
			replier := users[rng.IntN(len(users))]
			req := service.CreateReplyRequest{Content: demoReplies[rng.IntN(len(demoReplies))]}
			if last != nil && rng.IntN(2) == 0 {
				req.ParentReplyID = last.ID
				req.Content = fmt.Sprintf("@%s %s", last.Author.Username, req.Content)
			}
			r, err := replies.CreateReply(ctx, replier, topic.ID, req, "")
			if err != nil {
				log.Printf("Failed to create reply: %v", err)
				continue
			}
			last = r
			replied++
		}

		for _, u := range users {
			if u.ID == author.ID {
				continue
			}
			if rng.IntN(3) == 0 {
				_, _ = topics.ToggleLike(ctx, u, topic.ID)
			}
			if rng.IntN(5) == 0 {
				_, _ = topics.ToggleBookmark(ctx, u, topic.ID)
			}
		}
	}

	fmt.Printf("Seeded %d topics and %d replies\n", created, replied)
}
