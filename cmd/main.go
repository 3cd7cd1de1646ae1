// The rider client is a terminal front end for the ride-matching workflow:
// pick a route, request matches, join or create a ride, then chat with the
// ride's members over the realtime channel.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"hopalong/core/internal/api"
	"hopalong/core/internal/chat"
	"hopalong/core/internal/config"
	"hopalong/core/internal/logging"
	"hopalong/core/internal/match"
	"hopalong/core/internal/models"
	"hopalong/core/internal/realtime"
	"hopalong/core/internal/ride"
	"hopalong/core/internal/route"
)

type app struct {
	cfg     config.Config
	client  *api.Client
	routes  *route.Store
	matcher *match.Orchestrator
	rides   *ride.Store
	coord   *ride.Coordinator
	stream  *chat.Stream

	chatOpen bool
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	client := api.NewClient(cfg.APIBaseURL, logger)
	if cfg.SessionToken != "" {
		client.SetToken(cfg.SessionToken)
	}

	routes := route.NewStore()
	if cfg.RouteStatePath != "" {
		routes = route.NewPersistentStore(cfg.RouteStatePath)
	}

	matcher := match.NewOrchestrator(client, logger)
	matcher.OnStatus = func(line string) { fmt.Println("  " + line) }

	candidates := ride.NewStore()
	manager := realtime.NewManager(logger)
	stream := chat.NewStream(client, manager, cfg.BrokerURL, logger)
	stream.PageSize = cfg.ChatPageSize

	a := &app{
		cfg:     cfg,
		client:  client,
		routes:  routes,
		matcher: matcher,
		rides:   candidates,
		coord:   ride.NewCoordinator(client, candidates, logger),
		stream:  stream,
	}
	a.run()
}

func (a *app) run() {
	fmt.Println("hopalong rider client. Type 'help' for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		if cmd == "quit" || cmd == "exit" {
			break
		}
		a.dispatch(cmd, strings.TrimSpace(rest))
	}
	a.stream.Close()
}

func (a *app) dispatch(cmd, arg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	switch cmd {
	case "help":
		printHelp()
	case "login":
		err = a.login(ctx, arg)
	case "from":
		err = a.pickPlace(ctx, arg, a.routes.SetFrom)
	case "to":
		err = a.pickPlace(ctx, arg, a.routes.SetTo)
	case "depart":
		err = a.setDeparture(arg)
	case "route":
		a.printRoute()
	case "reset":
		a.routes.Reset()
		fmt.Println("route cleared")
	case "find":
		err = a.findMatches(ctx)
	case "join":
		err = a.join(ctx, arg)
	case "create":
		err = a.create(ctx)
	case "ride":
		err = a.showRide(ctx, arg)
	case "rides":
		err = a.previousRides(ctx)
	case "chat":
		err = a.openChat(ctx, arg)
	case "send":
		err = a.sendMessage(ctx, arg)
	default:
		fmt.Println("unknown command, try 'help'")
	}
	if err != nil {
		fmt.Println("error:", err)
	}
}

func printHelp() {
	fmt.Print(`commands:
  login <email>       sign in (account is created on first login)
  from <query>        pick the origin via autocomplete
  to <query>          pick the destination via autocomplete
  depart <rfc3339|+d> set the departure time (e.g. +2h)
  route               show the current route intent
  reset               clear the route intent
  find                request matching rides
  join <n>            join candidate number n from the last find
  create              create a new ride from the route
  ride <id>           show ride details
  rides               list your previous rides
  chat <rideID>       open the ride's chat channel
  send <text>         send a chat message
  quit
`)
}

func (a *app) login(ctx context.Context, email string) error {
	if email == "" {
		return errors.New("usage: login <email>")
	}
	token, err := a.client.Login(ctx, email)
	if err != nil {
		return err
	}
	a.client.SetToken(token)
	fmt.Println("logged in")
	return nil
}

func (a *app) pickPlace(ctx context.Context, query string, set func(*models.Location)) error {
	suggestions, err := a.client.Autocomplete(ctx, query)
	if err != nil {
		return err
	}
	if len(suggestions) == 0 {
		fmt.Println("no suggestions (queries need at least 2 characters)")
		return nil
	}
	for i, s := range suggestions {
		fmt.Printf("  %d. %s\n", i+1, s.Formatted)
	}
	fmt.Print("pick: ")
	var n int
	if _, err := fmt.Scanln(&n); err != nil || n < 1 || n > len(suggestions) {
		return errors.New("invalid selection")
	}
	loc := route.LocationFromSuggestion(suggestions[n-1])
	set(&loc)
	fmt.Println("selected", loc.FormattedAddress)
	return nil
}

func (a *app) setDeparture(arg string) error {
	if arg == "" {
		return errors.New("usage: depart <rfc3339 time or +duration>")
	}
	var t time.Time
	if strings.HasPrefix(arg, "+") {
		d, err := time.ParseDuration(arg[1:])
		if err != nil {
			return err
		}
		t = time.Now().Add(d)
	} else {
		var err error
		if t, err = time.Parse(time.RFC3339, arg); err != nil {
			return err
		}
	}
	if err := a.routes.SetDepartureAt(t); err != nil {
		return err
	}
	fmt.Println("departing", t.Format(time.RFC3339))
	return nil
}

func (a *app) printRoute() {
	intent := a.routes.Snapshot()
	describe := func(loc *models.Location) string {
		if loc == nil {
			return "(unset)"
		}
		return loc.FormattedAddress
	}
	fmt.Println("  from:  ", describe(intent.From))
	fmt.Println("  to:    ", describe(intent.To))
	if intent.DepartureAt != nil {
		fmt.Println("  depart:", intent.DepartureAt.Format(time.RFC3339))
	} else {
		fmt.Println("  depart: (unset)")
	}
}

func (a *app) findMatches(ctx context.Context) error {
	outcome, err := a.matcher.RequestMatch(ctx, a.routes.Snapshot())
	if err != nil {
		return err
	}
	switch outcome.Kind {
	case match.KindError:
		a.rides.Clear()
		fmt.Println("matching failed:", outcome.Reason)
	case match.KindNone:
		a.rides.Clear()
		fmt.Println("no matching rides found, 'create' starts a new one")
	case match.KindMatches:
		a.rides.Set(outcome.Candidates)
		for i, m := range outcome.Candidates {
			fmt.Printf("  %d. %s -> %s, departs %s (overlap %.0f%%, %.0f min apart)\n",
				i+1,
				m.Ride.PrimaryRoute.StartPlaceName,
				m.Ride.PrimaryRoute.EndPlaceName,
				m.Ride.Start.Format("15:04 Jan 2"),
				m.OverlapPercentage,
				m.TimeDifference,
			)
		}
	}
	return nil
}

func (a *app) join(ctx context.Context, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return errors.New("usage: join <candidate number>")
	}
	all := a.rides.All()
	if n < 1 || n > len(all) {
		return ride.ErrUnknownRide
	}
	joined, err := a.coord.Join(ctx, all[n-1].Ride.ID, a.routes.Snapshot())
	if err != nil {
		return err
	}
	fmt.Println("joined ride", joined.ID)
	a.routes.Reset()
	return nil
}

func (a *app) create(ctx context.Context) error {
	created, err := a.coord.Create(ctx, a.routes.Snapshot())
	if err != nil {
		return err
	}
	fmt.Println("created ride", created.ID)
	a.routes.Reset()
	return nil
}

func (a *app) showRide(ctx context.Context, rideID string) error {
	if rideID == "" {
		return errors.New("usage: ride <id>")
	}
	details, err := a.client.RideByID(ctx, rideID)
	if err != nil {
		return err
	}
	fmt.Printf("  %s -> %s, departs %s\n",
		details.PrimaryRoute.StartPlaceName,
		details.PrimaryRoute.EndPlaceName,
		details.Start.Format(time.RFC3339),
	)
	fmt.Printf("  owner: %s %s\n", details.Owner.FirstName, details.Owner.LastName)
	for _, m := range details.Members {
		fmt.Printf("  member: %s %s\n", m.FirstName, m.LastName)
	}
	return nil
}

func (a *app) previousRides(ctx context.Context) error {
	rides, err := a.client.PreviousRides(ctx)
	if err != nil {
		return err
	}
	if len(rides) == 0 {
		fmt.Println("no previous rides")
		return nil
	}
	for _, r := range rides {
		fmt.Printf("  %s: %s -> %s at %s\n",
			r.ID,
			r.PrimaryRoute.StartPlaceName,
			r.PrimaryRoute.EndPlaceName,
			r.Start.Format(time.RFC3339),
		)
	}
	return nil
}

func (a *app) openChat(ctx context.Context, rideID string) error {
	if rideID == "" {
		return errors.New("usage: chat <rideID>")
	}
	a.stream.OnUpdate(func(messages []models.ChatMessage) {
		printMessage(messages[len(messages)-1])
	})
	history, err := a.stream.Initialize(ctx, rideID)
	if err != nil {
		return err
	}
	for _, msg := range history {
		printMessage(msg)
	}
	a.chatOpen = true
	fmt.Println("chat open, 'send <text>' to talk")
	return nil
}

func (a *app) sendMessage(ctx context.Context, text string) error {
	if !a.chatOpen {
		return errors.New("open a chat first: chat <rideID>")
	}
	return a.stream.Send(ctx, text)
}

func printMessage(msg models.ChatMessage) {
	name := strings.TrimSpace(msg.Sender.FirstName + " " + msg.Sender.LastName)
	if name == "" {
		name = msg.SenderID
	}
	fmt.Printf("  [%s] %s: %s\n", msg.SentAt.Format("15:04"), name, msg.Content)
}
