package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"menuagent"
)

type cliOptions struct {
	provider     string
	flow         string
	message      string
	maxTurns     int
	showMenu     string
	debug        bool
	help         bool
	goal         string
	preferences  string
	restrictions []string
	allergies    string
	calorieGoal  int
	proteinGoal  int
	energy       []string
}

func newFlagSet(opts *cliOptions) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("menuagent", pflag.ContinueOnError)
	flagSet.StringVar(&opts.provider, "provider", "bedrock", "reasoning service: bedrock, ollama or mock")
	flagSet.StringVar(&opts.flow, "flow", "advisor", "flow to run: advisor or planner")
	flagSet.StringVarP(&opts.message, "message", "m", "", "replace the default user message")
	flagSet.IntVar(&opts.maxTurns, "max-turns", 0, "override the flow's turn budget")
	flagSet.StringVar(&opts.showMenu, "show-menu", "", "print one dining hall's menu and exit")
	flagSet.BoolVar(&opts.debug, "debug", false, "dump the full result")
	flagSet.BoolVarP(&opts.help, "help", "h", false, "show help")

	flagSet.StringVar(&opts.goal, "goal", "", "diner's goal, e.g. \"build muscle\"")
	flagSet.StringVar(&opts.preferences, "preferences", "", "free-text food preferences")
	flagSet.StringSliceVar(&opts.restrictions, "restrictions", nil, "dietary restrictions, e.g. vegetarian,gluten-free")
	flagSet.StringVar(&opts.allergies, "allergies", "", "free-text allergies")
	flagSet.IntVar(&opts.calorieGoal, "calorie-goal", 0, "daily calorie goal")
	flagSet.IntVar(&opts.proteinGoal, "protein-goal", 0, "daily protein goal in grams")
	flagSet.StringArrayVar(&opts.energy, "energy", nil, "energy report as meal[@time]=level; repeatable")
	return flagSet
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `menuagent: recommend dining hall food from today's menu snapshot

Usage:
  menuagent [flags]

Environment:
  MODEL_ID                model or inference profile id (required unless --provider mock)
  MENU_SNAPSHOT_PATH      snapshot JSON (default artifacts/snapshot.json)
  RESTRICTIONS_PATH       optional YAML restriction tables
  BASE_OLLAMA_ENDPOINT    Ollama server (default http://localhost:11434)
  SLACK_WEBHOOK_URL       post results here; a local echo server is used when unset

Flags:
%s`, flagSet.FlagUsages())
}

func (o cliOptions) profile() (menuagent.Profile, error) {
	energy := make([]menuagent.EnergyEntry, 0, len(o.energy))
	for _, raw := range o.energy {
		e, err := parseEnergy(raw)
		if err != nil {
			return menuagent.Profile{}, err
		}
		energy = append(energy, e)
	}
	return menuagent.Profile{
		Goal:         o.goal,
		Preferences:  o.preferences,
		Restrictions: trimAll(o.restrictions),
		Allergies:    o.allergies,
		CalorieGoal:  o.calorieGoal,
		ProteinGoal:  o.proteinGoal,
		Energy:       energy,
	}, nil
}

// parseEnergy reads "lunch=low" or "lunch@12:30=low".
func parseEnergy(raw string) (menuagent.EnergyEntry, error) {
	left, level, ok := strings.Cut(raw, "=")
	level = strings.TrimSpace(level)
	if !ok || level == "" {
		return menuagent.EnergyEntry{}, fmt.Errorf("invalid energy report %q: want meal[@time]=level", raw)
	}
	meal, at, _ := strings.Cut(left, "@")
	meal = strings.TrimSpace(meal)
	if meal == "" {
		return menuagent.EnergyEntry{}, fmt.Errorf("invalid energy report %q: missing meal", raw)
	}
	return menuagent.EnergyEntry{Meal: meal, Time: strings.TrimSpace(at), Level: level}, nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
