package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"certprep/internal/bank"
	"certprep/internal/config"
	"certprep/internal/exam"
	"certprep/internal/logger"
	"certprep/internal/progress"
	"certprep/internal/stats"
	"certprep/internal/storage"
)

func main() {
	cfg := config.Load()

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}
	log.Debug("db_path=%s bank_path=%s exam=%dq/%dmin",
		cfg.DBPath, cfg.BankPath, cfg.ExamQuestionCount, cfg.ExamDurationMinutes)

	store, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Error("failed to open storage: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	b, err := bank.Load(cfg.BankPath)
	if err != nil {
		log.Error("failed to load question bank: %v", err)
		os.Exit(1)
	}
	if b.Len() == 0 {
		log.Error("question bank is empty")
		os.Exit(1)
	}

	ctx := logger.NewContext(context.Background(), log)
	ps := progress.New(store)
	ps.Load(ctx)
	ps.SetDomainTotals(ctx, b.DomainCounts())

	cmd := "stats"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "stats":
		printReport(stats.Summarize(ps.Progress(), ps.History()))
	case "exam":
		if err := runExam(ctx, cfg, b, ps); err != nil {
			log.Error("mock exam failed: %v", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [stats|exam]\n", os.Args[0])
		os.Exit(2)
	}
}

// runExam drives one mock exam on the terminal. The exam format comes from
// configuration, not the package defaults.
func runExam(ctx context.Context, cfg config.Config, b *bank.Bank, ps *progress.Store) error {
	s := exam.New(b.Questions(), ps,
		exam.WithQuestionCount(cfg.ExamQuestionCount),
		exam.WithDuration(time.Duration(cfg.ExamDurationMinutes)*time.Minute),
	)
	defer s.Close()

	if err := s.Start(ctx); err != nil {
		return err
	}

	in := bufio.NewScanner(os.Stdin)
	for {
		snap := s.Snapshot()
		if snap.Phase != exam.PhaseRunning {
			break
		}

		q := snap.Question
		fmt.Printf("\n[%d/%d] %s   (%s left, %d answered)\n",
			snap.Index+1, snap.Total, q.Question,
			snap.TimeRemaining.Round(time.Second), snap.AnsweredCount)
		for i, opt := range q.Options {
			marker := " "
			if snap.Answer == i {
				marker = "*"
			}
			fmt.Printf(" %s %d) %s\n", marker, i+1, opt)
		}
		fmt.Print("answer 1-9, (n)ext, (p)rev, (s)ubmit, (q)uit: ")

		if !in.Scan() {
			return nil
		}
		input := strings.TrimSpace(in.Text())
		switch input {
		case "n":
			if err := s.Next(); err != nil {
				fmt.Println(err)
			}
		case "p":
			if err := s.Prev(); err != nil {
				fmt.Println(err)
			}
		case "s":
			if err := s.Submit(ctx, false); err != nil {
				var ue *exam.UnansweredError
				if !errors.As(err, &ue) {
					return err
				}
				fmt.Printf("%d question(s) unanswered; submit anyway? (y/N): ", ue.Count)
				if in.Scan() && strings.EqualFold(strings.TrimSpace(in.Text()), "y") {
					if err := s.Submit(ctx, true); err != nil {
						return err
					}
				}
			}
		case "q":
			fmt.Println("exam abandoned, nothing recorded")
			return nil
		default:
			n, err := strconv.Atoi(input)
			if err != nil {
				fmt.Println("unrecognized input")
				continue
			}
			if err := s.SelectOption(n - 1); err != nil {
				fmt.Println(err)
			}
		}
	}

	result, ok := s.Result()
	if !ok {
		return nil
	}
	verdict := "FAIL"
	if s.Passed() {
		verdict = "PASS"
	}
	fmt.Printf("\nResult: %d/%d (%s) in %s\n",
		result.Score, result.TotalQuestions, verdict,
		(time.Duration(result.TimeSpentSeconds) * time.Second))
	for domain, ds := range result.DomainScores {
		fmt.Printf("  %-26s %d/%d\n", domain.DisplayName(), ds.Correct, ds.Total)
	}
	return nil
}

func printReport(s stats.Summary) {
	fmt.Println()
	fmt.Println("Study progress")
	fmt.Println("==============")
	fmt.Printf("Answered:   %d (%d correct, %.0f%% accuracy)\n", s.TotalAnswered, s.TotalCorrect, s.Accuracy*100)
	fmt.Printf("Streak:     %d day(s)\n", s.StudyStreak)
	fmt.Printf("Bookmarks:  %d\n", s.Bookmarked)
	fmt.Println()
	for _, d := range s.Domains {
		fmt.Printf("  %-26s %3d/%3d answered, %.0f%% accuracy\n",
			d.DisplayName, d.Answered, d.Total, d.Accuracy*100)
	}
	fmt.Println()
	fmt.Printf("Mock exams: %d", s.ExamCount)
	if s.LatestExam != nil {
		fmt.Printf(" (best %d, pass rate %.0f%%, latest %d/%d)",
			s.BestExamScore, s.ExamPassRate*100, s.LatestExam.Score, s.LatestExam.TotalQuestions)
	}
	fmt.Println()
}
