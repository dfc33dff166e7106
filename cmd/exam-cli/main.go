package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/stemsi/mcq-exam/internal/examclient"
	"github.com/stemsi/mcq-exam/internal/logger"
	"github.com/stemsi/mcq-exam/internal/model"
	"golang.org/x/term"
)

func main() {
	server := flag.String("server", "http://localhost:3000", "Exam server base URL")
	examFlag := flag.String("exam", "", "Exam ID")
	name := flag.String("name", "", "Student name")
	roll := flag.String("roll", "", "Roll number")
	logLevel := flag.String("log-level", "warn", "Log level")
	flag.Parse()

	log := logger.New(os.Stderr, *logLevel, "pretty")

	examID, err := uuid.Parse(*examFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: -exam must be a valid exam ID")
		os.Exit(2)
	}

	reader := bufio.NewReader(os.Stdin)
	student := examclient.Identity{
		Name: prompt(reader, "Enter Name: ", *name),
		Roll: prompt(reader, "Enter Roll No: ", *roll),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := examclient.NewClient(*server, student)
	paper, err := client.FetchPaper(ctx, examID)
	if errors.Is(err, examclient.ErrExamUnavailable) {
		fmt.Println("This exam is not available.")
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load exam")
	}

	var reporter examclient.WarningReporter
	stream, err := examclient.DialWarningStream(ctx, *server, examID, student)
	if err != nil {
		log.Warn().Err(err).Msg("Integrity stream unavailable, continuing without it")
	} else {
		defer stream.Close()
		reporter = stream
	}

	ui := &terminalUI{out: os.Stdout}
	fs := &terminalFullscreen{fd: int(os.Stdout.Fd())}
	runner := examclient.NewRunner(ui, fs, client, reporter, log)

	printPaper(paper)
	fmt.Println(`Answer with "<question> <choice>" (e.g. "2 c"). Type "submit" to finish, "retry" after a failed submission, "list" to reprint.`)

	watchSignals(ctx, runner, fs)
	go readCommands(reader, runner, paper)

	final, err := runner.Run(ctx, *paper)
	if err != nil {
		fmt.Println("\nExam aborted; nothing was submitted.")
		os.Exit(1)
	}
	if final.Reason == model.SubmitReasonTooManyWarnings {
		fmt.Println("Your exam was submitted automatically after repeated warnings.")
	}
}

func prompt(r *bufio.Reader, label, preset string) string {
	if preset != "" {
		return preset
	}
	fmt.Print(label)
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}

func printPaper(p *model.ExamPaper) {
	fmt.Printf("\n=== %s (%d minutes) ===\n", p.Title, p.DurationMinutes)
	for i, q := range p.Questions {
		fmt.Printf("\n%d. %s\n", i+1, q.Text)
		for j, c := range q.Choices {
			fmt.Printf("   %c) %s\n", 'a'+j, c)
		}
	}
	fmt.Println()
}

func readCommands(r *bufio.Reader, runner *examclient.Runner, paper *model.ExamPaper) {
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		var ev examclient.Event
		switch fields := strings.Fields(strings.ToLower(line)); {
		case len(fields) == 0:
			continue
		case fields[0] == "submit":
			ev = examclient.SubmitEvent{}
		case fields[0] == "retry":
			ev = examclient.RetryEvent{}
		case fields[0] == "list":
			printPaper(paper)
			continue
		case len(fields) == 2:
			q, qerr := strconv.Atoi(fields[0])
			c, ok := parseChoice(fields[1])
			if qerr != nil || !ok || q < 1 || q > len(paper.Questions) {
				fmt.Println("Unrecognized answer.")
				continue
			}
			ev = examclient.AnswerEvent{Question: q - 1, Choice: c}
		default:
			fmt.Println("Unrecognized command.")
			continue
		}
		if !runner.Send(ev) {
			return
		}
	}
}

// parseChoice accepts a letter a-d or a number 1-4.
func parseChoice(s string) (int, bool) {
	if len(s) == 1 && s[0] >= 'a' && s[0] < 'a'+model.ChoiceCount {
		return int(s[0] - 'a'), true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > model.ChoiceCount {
		return 0, false
	}
	return n - 1, true
}

type terminalUI struct {
	mu  sync.Mutex
	out *os.File
}

func (u *terminalUI) RenderTimer(text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	// Only redraw on whole minutes and during the final minute.
	if strings.HasSuffix(text, ":00") || strings.HasPrefix(text, "0:") {
		fmt.Fprintf(u.out, "[time left %s]\n", text)
	}
}

func (u *terminalUI) ShowWarning(_ int, text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintf(u.out, "!! %s: stay on the exam window\n", text)
}

func (u *terminalUI) Alert(text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintf(u.out, "!! %s\n", text)
}

func (u *terminalUI) Navigate(target string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if strings.HasSuffix(target, "/thankyou") {
		fmt.Fprintln(u.out, "Thank you! Your answers have been submitted.")
		return
	}
	fmt.Fprintln(u.out, "This exam is no longer available.")
}

// terminalFullscreen treats the terminal size at start as "fullscreen";
// shrinking below it counts as leaving.
type terminalFullscreen struct {
	fd int

	mu         sync.Mutex
	cols, rows int
	active     bool
}

func (f *terminalFullscreen) Request(context.Context) error {
	if !term.IsTerminal(f.fd) {
		return errors.New("stdout is not a terminal")
	}
	cols, rows, err := term.GetSize(f.fd)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cols, f.rows, f.active = cols, rows, true
	return nil
}

// resized reports the fullscreen state after a size change, and whether it
// changed at all.
func (f *terminalFullscreen) resized() (active, changed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cols == 0 {
		return false, false
	}
	cols, rows, err := term.GetSize(f.fd)
	if err != nil {
		return f.active, false
	}
	now := cols >= f.cols && rows >= f.rows
	changed = now != f.active
	f.active = now
	return now, changed
}
