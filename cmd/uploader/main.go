package main

import (
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"AirlineETL/pkg/detector"
	"AirlineETL/pkg/log"
	"AirlineETL/pkg/uploadclient"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func main() {
	_ = godotenv.Load()

	server := flag.String("server", envOrDefault("UPLOAD_SERVER_URL", "http://localhost:3000"), "upload service base URL")
	datasetFlag := flag.String("dataset", "", "dataset of the file; detected locally when empty")
	process := flag.Bool("process", true, "trigger processing after the upload")
	watch := flag.Bool("watch", true, "follow processing progress over websocket")
	flag.Parse()

	logger := log.NewLogger()

	if flag.NArg() != 1 {
		logger.Fatal("usage: uploader [flags] <file.csv|file.docx>")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	file := detector.FromPath(flag.Arg(0))
	client := uploadclient.New(*server, uploadclient.WithLogger(logger))

	dataset, ok := detector.Parse(*datasetFlag)
	if *datasetFlag != "" && !ok {
		logger.Fatalf("Unknown dataset %q, expected one of %v", *datasetFlag, detector.All())
	}
	if !ok {
		detected := client.Detect(ctx, file)
		fields := logrus.Fields{"dataset": detected.Dataset, "source": detected.Source, "tokens": strings.Join(detected.Tokens, ",")}
		if detected.Err != nil {
			fields["reason"] = detected.Err.Error()
		}
		logger.WithFields(fields).Info("Dataset detected")
		dataset = detected.Dataset
	}

	res := client.Upload(ctx, file, dataset, progressBar(logger, "upload"))
	if !res.Success {
		logger.WithField("status", res.Status).Fatalf("Upload failed: %s", res.Error)
	}

	var uploaded struct {
		UploadID string   `json:"upload_id"`
		Dataset  string   `json:"dataset"`
		Staged   int      `json:"staged"`
		Warnings []string `json:"warnings"`
	}
	if err := res.Decode(&uploaded); err != nil {
		logger.Fatalf("Unexpected upload response: %v", err)
	}
	for _, w := range uploaded.Warnings {
		logger.Warn(w)
	}
	logger.WithFields(logrus.Fields{
		"upload_id": uploaded.UploadID,
		"dataset":   uploaded.Dataset,
		"staged":    uploaded.Staged,
	}).Info("Upload staged")

	if !*process {
		return
	}

	watchDone := make(chan uploadclient.Result, 1)
	if *watch {
		go func() {
			watchDone <- client.Watch(ctx, uploaded.UploadID, func(st uploadclient.Status) {
				logger.Infof("processing %s %3d%% (%d/%d, %d failed)", st.Status, st.Percent, st.Processed, st.Total, st.Failed)
			})
		}()
	}

	res = client.Process(ctx, uploaded.UploadID, dataset)
	if !res.Success {
		logger.WithField("status", res.Status).Fatalf("Processing failed: %s", res.Error)
	}

	if *watch {
		if wr := <-watchDone; !wr.Success {
			logger.Warnf("Progress feed ended early: %s", wr.Error)
		}
	}

	var processed struct {
		Processed  int    `json:"processed"`
		Errors     int    `json:"errors"`
		Duplicates int    `json:"duplicates"`
		RunID      string `json:"run_id"`
	}
	if err := res.Decode(&processed); err != nil {
		logger.Fatalf("Unexpected process response: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"upload_id":  uploaded.UploadID,
		"run_id":     processed.RunID,
		"processed":  processed.Processed,
		"errors":     processed.Errors,
		"duplicates": processed.Duplicates,
	}).Info("Processing finished")
}

// progressBar logs every 10% step.
func progressBar(logger *logrus.Logger, label string) uploadclient.ProgressFunc {
	next := 0
	return func(pct int) {
		if pct < next && pct != 100 {
			return
		}
		filled := pct / 5
		logger.Infof("%s [%s%s] %3d%%", label, strings.Repeat("#", filled), strings.Repeat(".", 20-filled), pct)
		next = (pct/10 + 1) * 10
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
