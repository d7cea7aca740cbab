package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hunterwarburton/webrag/internal/logger"
)

const usage = `Usage: ragctl [flags] <command> [args]

Commands:
  reset                      rebuild the index from the corpus
  ask <question>             ask a question
  vectors [question]         fetch the 2-D projection (see -method)

Flags:
`

func main() {
	fs := flag.NewFlagSet("ragctl", flag.ExitOnError)
	debug := fs.Bool("debug", false, "Enable debug logging")
	addr := fs.String("addr", envOr("RAG_API_URL", "http://localhost:5000"), "Base URL of the RAG API")
	key := fs.String("key", os.Getenv("RAG_API_KEY"), "API key sent as a bearer token")
	method := fs.String("method", "PCA", "Reduction method for vectors: PCA or TSNE")
	timeout := fs.Duration("timeout", 5*time.Minute, "Request timeout")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	logger.Init(*debug)
	defer logger.Sync()

	c := newClient(*addr, *key, *timeout)
	if err := run(context.Background(), c, fs.Args(), *method, os.Stdout); err != nil {
		logger.Error("%v", err)
		if errors.Is(err, errUsage) {
			fs.Usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("missing or unknown command")

func run(ctx context.Context, c *client, args []string, method string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	rest := strings.TrimSpace(strings.Join(args[1:], " "))

	switch args[0] {
	case "reset":
		logger.Debug("Resetting index via %s", c.baseURL)
		res, err := c.Reset(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Database reset! Loaded %d documents\n", res.Documents)

	case "ask":
		if rest == "" {
			return fmt.Errorf("ask needs a question")
		}
		res, err := c.Ask(ctx, rest)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Answer: %s\n", res.Answer)

	case "vectors":
		res, err := c.Vectors(ctx, rest, method)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d vectors (%s)\n", len(res.Vectors), method)
		for i, v := range res.Vectors {
			fmt.Fprintf(out, "  [%8.4f %8.4f] %s\n", v[0], v[1], truncate(res.Texts[i], 60))
		}
		if res.QuestionVector != nil {
			fmt.Fprintf(out, "question [%8.4f %8.4f] %s\n", res.QuestionVector[0], res.QuestionVector[1], res.Question)
			for i, v := range res.SimilarVectors {
				fmt.Fprintf(out, "  %.4f [%8.4f %8.4f] %s\n", res.SimilarityScores[i], v[0], v[1], truncate(res.SimilarTexts[i], 60))
			}
		}

	default:
		return errUsage
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
