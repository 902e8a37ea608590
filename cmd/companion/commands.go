package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/app"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/facts"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
)

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runSay(ctx context.Context, a *app.App, userID, text string, out io.Writer) error {
	res, err := a.Orchestrator.HandleTurn(ctx, userID, text)
	if err != nil {
		return err
	}
	if err := a.Dispatcher.Flush(ctx, userID); err != nil {
		return err
	}
	return writeJSON(out, res)
}

// runChat reads one utterance per line until EOF or "/quit".
func runChat(ctx context.Context, a *app.App, userID string, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "/quit":
			return nil
		case line == "":
		default:
			res, err := a.Orchestrator.HandleTurn(ctx, userID, line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				break
			}
			fmt.Fprintf(out, "[%s -> %s, %s] %s\n",
				res.Classification.Primary, res.Directive.AIEmotion, res.Directive.AnimationHint, res.Directive.ResponseText)
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "> ")
	}
	return sc.Err()
}

func runStatus(ctx context.Context, a *app.App, userID string, out io.Writer) error {
	s, err := a.Orchestrator.RelationshipStatus(ctx, userID)
	if err != nil {
		return err
	}
	return writeJSON(out, s)
}

func runPatterns(ctx context.Context, a *app.App, userID string, out io.Writer) error {
	p, err := a.Orchestrator.EmotionalPatterns(ctx, userID)
	if err != nil {
		return err
	}
	return writeJSON(out, p)
}

func runInsights(ctx context.Context, a *app.App, userID string, out io.Writer) error {
	in, err := a.Orchestrator.EmotionalInsights(ctx, userID)
	if err != nil {
		return err
	}
	return writeJSON(out, in)
}

func runHistory(ctx context.Context, a *app.App, userID string, limit int, out io.Writer) error {
	turns, err := a.Memory.GetConversationHistory(ctx, userID, limit)
	if err != nil {
		return err
	}
	return writeJSON(out, turns)
}

func runFacts(ctx context.Context, a *app.App, userID string, distinct bool, out io.Writer) error {
	fs, err := a.Memory.GetPersonalFacts(ctx, userID)
	if err != nil {
		return err
	}
	list := make([]model.PersonalFact, 0, len(fs))
	for _, f := range fs {
		list = append(list, *f)
	}
	if distinct {
		list = facts.Dedupe(list)
	}
	return writeJSON(out, list)
}

func runSearch(ctx context.Context, a *app.App, userID, query string, limit int, out io.Writer) error {
	results, err := a.Memory.SearchMemories(ctx, userID, query, limit)
	if err != nil {
		return err
	}
	return writeJSON(out, results)
}

func runRemember(ctx context.Context, a *app.App, userID, emotion string, intensity float64, trigger, reaction string, strength float64, out io.Writer) error {
	e, err := model.ParseEmotion(emotion)
	if err != nil {
		return err
	}
	r, err := model.ParseEmotion(reaction)
	if err != nil {
		return err
	}
	ev, err := a.Memory.StoreEmotionalMemory(ctx, userID, e, intensity, trigger, r, strength)
	if err != nil {
		return err
	}
	return writeJSON(out, ev)
}

func runSetRelationship(ctx context.Context, a *app.App, userID string, intimacy, trust float64, count int64, out io.Writer) error {
	s, err := a.Memory.UpdateRelationshipStatus(ctx, userID, intimacy, trust, count)
	if err != nil {
		return err
	}
	return writeJSON(out, s)
}
