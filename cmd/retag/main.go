package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/db"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/logger"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/media"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/repos"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/services"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/types"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	var photoIDs idList
	var dryRun bool
	var limit int
	var minAge time.Duration
	flag.Var(&photoIDs, "photo", "photo id to retag (repeatable; default is every retryable photo)")
	flag.BoolVar(&dryRun, "dry-run", false, "print candidate photos without tagging")
	flag.IntVar(&limit, "limit", 0, "limit number of photos processed")
	flag.DurationVar(&minAge, "min-age", 5*time.Minute, "only pick up unprocessed photos older than this")
	flag.Parse()

	log, err := logger.New("development")
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		fmt.Printf("init postgres: %v\n", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	photoRepo := repos.NewPhotoRepo(thePG, log)
	usageLogRepo := repos.NewUsageLogRepo(thePG, log)
	aiCallLogRepo := repos.NewAICallLogRepo(thePG, log)

	mediaStore, err := media.New(log)
	if err != nil {
		fmt.Printf("init media store: %v\n", err)
		os.Exit(1)
	}
	openaiClient, err := services.NewOpenAIClient(log)
	if err != nil {
		fmt.Printf("init OpenAI client: %v\n", err)
		os.Exit(1)
	}
	emojiMap, err := services.LoadEmojiMap(log)
	if err != nil {
		fmt.Printf("load emoji map: %v\n", err)
		os.Exit(1)
	}
	usageService := services.NewUsageService(log, usageLogRepo)
	taggingService, err := services.NewTaggingService(log, photoRepo, aiCallLogRepo, usageService, mediaStore, openaiClient, emojiMap, nil)
	if err != nil {
		fmt.Printf("init tagging service: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var candidates []*types.Photo
	if len(photoIDs) > 0 {
		for _, raw := range photoIDs {
			id, pErr := uuid.Parse(raw)
			if pErr != nil {
				fmt.Printf("skipping invalid photo id %q\n", raw)
				continue
			}
			photo, gErr := photoRepo.GetByID(ctx, nil, id)
			if gErr != nil {
				fmt.Printf("skipping %s: %v\n", id, gErr)
				continue
			}
			candidates = append(candidates, photo)
		}
	} else {
		candidates, err = photoRepo.ListRetryable(ctx, nil, time.Now().Add(-minAge))
		if err != nil {
			fmt.Printf("list retryable photos: %v\n", err)
			os.Exit(1)
		}
	}

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	fmt.Printf("found %d photo(s) to retag\n", len(candidates))

	if dryRun {
		for _, p := range candidates {
			fmt.Printf("  %s  status=%s  error_kind=%s\n", p.ID, p.Status, p.ErrorKind)
		}
		return
	}

	var tagged, failed int
	for i, p := range candidates {
		fmt.Printf("[%d/%d] tagging %s... ", i+1, len(candidates), p.ID)
		updated, tErr := taggingService.Tag(ctx, p.ID)
		if tErr != nil {
			fmt.Printf("failed: %v\n", tErr)
			failed++
			continue
		}
		fmt.Printf("ok (status=%s)\n", updated.Status)
		tagged++
	}
	fmt.Printf("done: %d tagged, %d failed\n", tagged, failed)
}
