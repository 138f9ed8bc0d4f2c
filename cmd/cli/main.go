package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/tempoviz/pkg/logger"
	"github.com/himanishpuri/tempoviz/pkg/models"
	"github.com/himanishpuri/tempoviz/pkg/tempoviz"
	"github.com/himanishpuri/tempoviz/pkg/tempoviz/audio"
	"github.com/himanishpuri/tempoviz/pkg/tempoviz/tempo"
)

// Global flags
var (
	dbPath     string
	tempDir    string
	sampleRate int
)

func init() {
	flag.StringVar(&dbPath, "db", getEnvOrDefault("TEMPOVIZ_DB_PATH", "tempoviz.sqlite3"), "Path to the SQLite database file")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("TEMPOVIZ_TEMP_DIR", os.TempDir()), "Directory for temporary audio conversion files")
	flag.IntVar(&sampleRate, "rate", audio.DefaultSampleRate, "Sample rate non-WAV inputs are converted to")
	flag.Usage = printUsage
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func createService() (tempoviz.Service, error) {
	return tempoviz.NewService(
		tempoviz.WithDBPath(dbPath),
		tempoviz.WithTempDir(tempDir),
		tempoviz.WithSampleRate(sampleRate),
	)
}

func mustCreateService() tempoviz.Service {
	svc, err := createService()
	if err != nil {
		fail("Failed to create service: %v", err)
	}
	return svc
}

func fail(format string, args ...any) {
	fmt.Printf("❌ "+format+"\n", args...)
	logger.GetLogger().Errorf(format, args...)
	os.Exit(1)
}

// splitArgs separates leading positional arguments from the flags that follow them,
// so both "analyze a.wav --force" and "analyze --force a.wav" work.
func splitArgs(args []string) (positional, flags []string) {
	for i, arg := range args {
		if strings.HasPrefix(arg, "-") {
			return positional, args[i:]
		}
		positional = append(positional, arg)
	}
	return positional, nil
}

func parseCommand(name string, args []string, setup func(fs *flag.FlagSet)) []string {
	positional, flagArgs := splitArgs(args)
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	if setup != nil {
		setup(fs)
	}
	fs.Parse(flagArgs)
	return append(positional, fs.Args()...)
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command, args := flag.Arg(0), flag.Args()[1:]
	log.Debugf("Executing command: %s", command)

	switch command {
	case "analyze":
		handleAnalyze(args)
	case "estimate":
		handleEstimate(args)
	case "spectrum":
		handleSpectrum(args)
	case "info":
		handleInfo(args)
	case "list":
		handleList(args)
	case "show":
		handleShow(args)
	case "delete":
		handleDelete(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAnalyze(args []string) {
	var title *string
	var force, asJSON *bool
	files := parseCommand("analyze", args, func(fs *flag.FlagSet) {
		title = fs.String("title", "", "Title to store (single file only, defaults to the file name)")
		force = fs.Bool("force", false, "Re-analyze even if a stored result exists")
		asJSON = fs.Bool("json", false, "Print results as JSON")
	})
	if len(files) == 0 {
		fmt.Println("Usage: tempoviz analyze <audio_file>... [--title <title>] [--force] [--json]")
		os.Exit(1)
	}
	if *title != "" && len(files) > 1 {
		fail("--title can only be used with a single file")
	}

	svc := mustCreateService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var results []*models.Analysis
	failed := 0
	for _, file := range files {
		a, err := svc.Analyze(ctx, file, *title, tempoviz.AnalyzeOptions{Force: *force})
		if err != nil {
			fmt.Printf("❌ %s: %v\n", file, err)
			failed++
			continue
		}
		results = append(results, a)
	}

	if *asJSON {
		printJSON(results)
	} else {
		for _, a := range results {
			printAnalysis(a)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// topCandidates returns at most n tempos ordered by descending count.
func topCandidates(tempos []tempo.TempoCount, n int) []tempo.TempoCount {
	candidates := slices.Clone(tempos)
	// stable, so equal counts keep first-seen order like the selection does
	slices.SortStableFunc(candidates, func(a, b tempo.TempoCount) int {
		return b.Count - a.Count
	})
	return candidates[:max(0, min(n, len(candidates)))]
}

// handleEstimate runs the estimator without touching the database and prints the
// strongest tempo candidates.
func handleEstimate(args []string) {
	var top *int
	files := parseCommand("estimate", args, func(fs *flag.FlagSet) {
		top = fs.Int("top", 5, "Number of tempo candidates to print")
	})
	if len(files) != 1 || *top < 1 {
		fmt.Println("Usage: tempoviz estimate <audio_file> [--top <n>]")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	buf, err := audio.Load(ctx, files[0], tempDir, audio.ConvertWAVConfig{SampleRate: sampleRate})
	if err != nil {
		fail("Failed to load audio: %v", err)
	}

	res, err := tempo.Estimate(buf.Samples, buf.SampleRate, tempo.DefaultParams())
	switch {
	case err == nil:
		fmt.Printf("\n🎵 %d BPM\n", res.BPM)
	case tempo.IsTempoError(err):
		fmt.Printf("\n🎵 -- BPM (%v)\n", err)
	default:
		fail("Estimate failed: %v", err)
	}
	if res == nil {
		return
	}

	fmt.Printf("   Threshold: %.2f after %d attempt(s)", res.Threshold, res.Attempts)
	if res.FloorReached {
		fmt.Print(" (floor reached)")
	}
	fmt.Printf("\n   Peaks:     %s\n", humanize.Comma(int64(len(res.Peaks))))

	if candidates := topCandidates(res.Tempos, *top); len(candidates) > 0 {
		fmt.Println("\n   Candidates:")
		for _, c := range candidates {
			fmt.Printf("   %4d BPM  %s\n", c.Tempo, strings.Repeat("█", min(c.Count, 60)))
		}
	}
}

func handleSpectrum(args []string) {
	var every *int
	files := parseCommand("spectrum", args, func(fs *flag.FlagSet) {
		every = fs.Int("every", 43, "Print every n-th frame (43 frames is about one second at 44.1 kHz)")
	})
	if len(files) != 1 || *every < 1 {
		fmt.Println("Usage: tempoviz spectrum <audio_file> [--every <n>]")
		os.Exit(1)
	}

	svc := mustCreateService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := svc.Spectrum(ctx, files[0])
	if err != nil {
		fail("Spectrum failed: %v", err)
	}

	fmt.Printf("\n📊 %d frames, FFT %d, %d bins, %d Hz\n\n", len(res.Frames), res.FFTSize, res.BinCount, res.SampleRate)
	for i := 0; i < len(res.Frames); i += *every {
		f := res.Frames[i]
		at := time.Duration(f.Offset) * time.Second / time.Duration(max(res.SampleRate, 1))
		fmt.Printf("%8s  peak %8.1f Hz  %s\n", at.Round(time.Millisecond), res.PeakHz[i], bars(f.Data, 32))
	}
}

// bars renders data as width block characters, each the mean of a band of bins.
func bars(data []uint8, width int) string {
	const levels = " ▁▂▃▄▅▆▇█"
	runes := []rune(levels)
	if len(data) == 0 {
		return ""
	}
	band := max(len(data)/width, 1)
	var sb strings.Builder
	for start := 0; start < len(data); start += band {
		sum := 0
		end := min(start+band, len(data))
		for _, v := range data[start:end] {
			sum += int(v)
		}
		mean := sum / (end - start)
		sb.WriteRune(runes[mean*(len(runes)-1)/255])
	}
	return sb.String()
}

func handleInfo(args []string) {
	files := parseCommand("info", args, nil)
	if len(files) != 1 {
		fmt.Println("Usage: tempoviz info <audio_file>")
		os.Exit(1)
	}
	path := files[0]

	st, err := os.Stat(path)
	if err != nil {
		fail("Cannot read %s: %v", path, err)
	}
	fmt.Printf("\n📄 %s (%s)\n", path, humanize.Bytes(uint64(st.Size())))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if meta, err := audio.ReadMetadataFFmpeg(ctx, path); err != nil {
		logger.GetLogger().Warnf("ffprobe unavailable or failed: %v", err)
	} else {
		fmt.Printf("   Format:      %s\n", meta.Format)
		if meta.Title != "" {
			fmt.Printf("   Title:       %s\n", meta.Title)
		}
		if meta.Artist != "" {
			fmt.Printf("   Artist:      %s\n", meta.Artist)
		}
		fmt.Printf("   Source rate: %d Hz, %d channel(s)\n", meta.SampleRate, meta.Channels)
	}

	buf, err := audio.Load(ctx, path, tempDir, audio.ConvertWAVConfig{SampleRate: sampleRate})
	if err != nil {
		fail("Failed to load audio: %v", err)
	}
	sum := audio.Summarize(buf.Samples, buf.SampleRate)
	fmt.Printf("   Decoded:     %s samples at %d Hz (%s)\n",
		humanize.Comma(int64(sum.SampleCount)), buf.SampleRate, sum.Duration.Round(time.Millisecond))
	fmt.Printf("   Peak:        %.4f\n", sum.PeakAmplitude)
	fmt.Printf("   RMS:         %.4f\n", sum.RMS)
}

func handleList(args []string) {
	var asJSON *bool
	parseCommand("list", args, func(fs *flag.FlagSet) {
		asJSON = fs.Bool("json", false, "Print results as JSON")
	})

	svc := mustCreateService()
	defer svc.Close()

	analyses, err := svc.ListAnalyses()
	if err != nil {
		fail("Failed to list analyses: %v", err)
	}
	if *asJSON {
		printJSON(analyses)
		return
	}

	if len(analyses) == 0 {
		fmt.Println("\n📭 No analyses in database")
		return
	}

	fmt.Printf("\n📚 Found %d analysis(es):\n\n", len(analyses))
	for i, a := range analyses {
		fmt.Printf("%d. %-30s %5s BPM  %s  (ID: %s)\n",
			i+1, a.Title, a.BPMLabel(), humanize.Time(a.CreatedAt), a.ID)
	}
}

func handleShow(args []string) {
	ids := parseCommand("show", args, nil)
	if len(ids) != 1 {
		fmt.Println("Usage: tempoviz show <analysis_id>")
		os.Exit(1)
	}

	svc := mustCreateService()
	defer svc.Close()

	a, err := svc.GetAnalysis(ids[0])
	if err != nil {
		if errors.Is(err, tempoviz.ErrNotFound) {
			fail("Analysis not found (ID: %s)", ids[0])
		}
		fail("Failed to get analysis: %v", err)
	}
	printAnalysis(a)
}

func handleDelete(args []string) {
	ids := parseCommand("delete", args, nil)
	if len(ids) != 1 {
		fmt.Println("Usage: tempoviz delete <analysis_id>")
		os.Exit(1)
	}

	svc := mustCreateService()
	defer svc.Close()

	a, err := svc.GetAnalysis(ids[0])
	if err != nil {
		fail("Analysis not found (ID: %s)", ids[0])
	}
	if err := svc.DeleteAnalysis(a.ID); err != nil {
		fail("Failed to delete analysis: %v", err)
	}

	fmt.Printf("\n✅ Deleted analysis %s (%q, %s BPM)\n", a.ID, a.Title, a.BPMLabel())
	logger.GetLogger().Infof("Deleted analysis ID=%s", a.ID)
}

func printAnalysis(a *models.Analysis) {
	fmt.Printf("\n🎵 %s: %s BPM\n", a.Title, a.BPMLabel())
	fmt.Printf("   ID:        %s\n", a.ID)
	if a.SourcePath != "" {
		fmt.Printf("   Source:    %s\n", a.SourcePath)
	}
	fmt.Printf("   Status:    %s\n", a.Status)
	d := time.Duration(a.DurationMs) * time.Millisecond
	fmt.Printf("   Duration:  %s (%s samples at %d Hz)\n", d, humanize.Comma(int64(a.SampleCount)), a.SampleRate)
	if a.PeakCount > 0 {
		fmt.Printf("   Peaks:     %d at threshold %.2f", a.PeakCount, a.Threshold)
		if a.FloorReached {
			fmt.Print(" (floor reached)")
		}
		fmt.Println()
	}
	fmt.Printf("   Level:     peak %.4f, rms %.4f\n", a.PeakAmplitude, a.RMS)
	fmt.Printf("   Analyzed:  %s\n", humanize.Time(a.CreatedAt))
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail("Failed to encode JSON: %v", err)
	}
}

func printUsage() {
	fmt.Println("TempoViz - tempo estimation and spectrum CLI")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --db <path>        Path to SQLite database (env: TEMPOVIZ_DB_PATH, default: tempoviz.sqlite3)")
	fmt.Println("  --temp <dir>       Temporary directory for audio conversion (env: TEMPOVIZ_TEMP_DIR)")
	fmt.Println("  --rate <hz>        Sample rate non-WAV inputs are converted to (default: 44100)")
	fmt.Println("\nUsage:")
	fmt.Println("  tempoviz [global-options] analyze <audio_file>... [--title <title>] [--force] [--json]")
	fmt.Println("  tempoviz [global-options] estimate <audio_file> [--top <n>]")
	fmt.Println("  tempoviz [global-options] spectrum <audio_file> [--every <n>]")
	fmt.Println("  tempoviz [global-options] info <audio_file>")
	fmt.Println("  tempoviz [global-options] list [--json]")
	fmt.Println("  tempoviz [global-options] show <analysis_id>")
	fmt.Println("  tempoviz [global-options] delete <analysis_id>")
	fmt.Println("\nExamples:")
	fmt.Println("  tempoviz analyze song.mp3")
	fmt.Println("  tempoviz --db beats.sqlite3 analyze *.wav --json")
	fmt.Println("  tempoviz estimate loop.wav --top 3")
}
