package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yungbote/studentrisk-backend/internal/client"
	"github.com/yungbote/studentrisk-backend/internal/clients/redis"
	"github.com/yungbote/studentrisk-backend/internal/domain/student"
	"github.com/yungbote/studentrisk-backend/internal/platform/envutil"
	"github.com/yungbote/studentrisk-backend/internal/platform/logger"
	"github.com/yungbote/studentrisk-backend/internal/platform/shutdown"
	"github.com/yungbote/studentrisk-backend/internal/prediction"
	"github.com/yungbote/studentrisk-backend/internal/query"
)

func main() {
	var (
		surveyPath string
		updateID   string
		getID      string
		list       bool
		limit      int
		offset     int
		outcome    string
		form       bool
		watch      bool
	)
	flag.StringVar(&surveyPath, "survey", "", "survey JSON file to predict (- for stdin)")
	flag.StringVar(&updateID, "update", "", "student id to re-predict, with -survey or from its stored inputs")
	flag.StringVar(&getID, "id", "", "student id to fetch")
	flag.BoolVar(&form, "form", false, "with -id, print the record in form format")
	flag.BoolVar(&list, "list", false, "list stored predictions")
	flag.IntVar(&limit, "limit", 100, "page size for -list")
	flag.IntVar(&offset, "offset", 0, "offset for -list")
	flag.StringVar(&outcome, "outcome", "", "outcome filter for -list (Graduate, Dropout, Enrolled)")
	flag.BoolVar(&watch, "watch", false, "print prediction events from REDIS_ADDR until interrupted")
	flag.Parse()

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	if watch {
		if err := watchEvents(ctx, log); err != nil {
			fmt.Printf("watch: %v\n", err)
			os.Exit(1)
		}
		return
	}

	c, err := client.NewFromEnv(log)
	if err != nil {
		fmt.Printf("init client: %v\n", err)
		os.Exit(1)
	}

	var out any
	switch {
	case list:
		out, err = c.GetAllPredictions(ctx, query.Params{Limit: limit, Offset: offset, OutcomeFilter: outcome})
	case getID != "":
		var rec *student.Record
		rec, err = c.GetPredictionByID(ctx, getID)
		if err == nil && form {
			out = c.ConvertToFormFormat(*rec)
		} else {
			out = rec
		}
	case updateID != "" && surveyPath == "":
		out, err = c.Repredict(ctx, updateID)
	case surveyPath != "":
		var survey student.SurveyRecord
		survey, err = readSurvey(surveyPath)
		if err != nil {
			fmt.Printf("read survey: %v\n", err)
			os.Exit(2)
		}
		if updateID != "" {
			out, err = c.UpdatePrediction(ctx, updateID, survey)
		} else {
			out, err = c.PredictOutcome(ctx, survey)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	printJSON(out)
}

func readSurvey(path string) (student.SurveyRecord, error) {
	var (
		raw []byte
		err error
	)
	if strings.TrimSpace(path) == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	var survey student.SurveyRecord
	if err := json.Unmarshal(raw, &survey); err != nil {
		return nil, err
	}
	return survey, nil
}

func watchEvents(ctx context.Context, log *logger.Logger) error {
	bus, err := redis.NewEventBus(log, envutil.String("REDIS_ADDR", ""), envutil.String("REDIS_CHANNEL", "predictions"))
	if err != nil {
		return err
	}
	defer bus.Close()
	if err := bus.StartForwarder(ctx, func(ev redis.Event) { printJSON(ev) }); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func printError(err error) {
	var pe *prediction.Error
	if !errors.As(err, &pe) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "%s (%s): %s\n", pe.Kind, pe.Op, pe.Message)
	for _, f := range pe.Fields {
		fmt.Fprintf(os.Stderr, "  - %s\n", f)
	}
	if pe.Prediction != nil {
		fmt.Fprintln(os.Stderr, "prediction computed but not stored:")
		printJSON(pe.Prediction)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
