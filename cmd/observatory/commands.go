package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/couchcryptid/open-observatory/internal/domain"
	"github.com/couchcryptid/open-observatory/internal/session"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

type invalidator interface {
	Invalidate(ctx context.Context) error
}

func runCatalog(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("catalog")
	refresh := fs.Bool("refresh", false, "drop the cached catalog before listing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cache, ok := a.catalog.(invalidator); ok && *refresh {
		if err := cache.Invalidate(ctx); err != nil {
			a.logger.Warn("catalog cache invalidation failed", "error", err)
		}
	}
	bodies, err := a.catalog.CelestialBodies(ctx)
	if err != nil {
		return err
	}
	tw := table(a.out)
	fmt.Fprintln(tw, "ID\tNAME\tVALIDITY")
	for _, b := range domain.NewCatalog(bodies).Bodies() {
		validity := a.cfg.ExpiryWindow.String() + " (default)"
		if b.ValidityTime > 0 {
			validity = fmt.Sprintf("%dh", b.ValidityTime)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", b.ID, b.Name, validity)
	}
	return tw.Flush()
}

func runReport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("report")
	body := fs.String("body", "", "celestial body id (see the catalog command)")
	at := fs.String("time", "", "observation time, RFC 3339 or 2006-01-02T15:04; the current minute when omitted")
	orientation := fs.String("orientation", "", "orientation in degrees")
	visibility := fs.String("visibility", "", "NAKED_EYE, BINOCULARS or TELESCOPE")
	lat := fs.Float64("lat", 0, "marker latitude")
	lng := fs.Float64("lng", 0, "marker longitude")
	place := fs.String("place", "", "place the marker by searching for a place name instead of -lat/-lng")
	description := fs.String("description", "", "optional description")
	publish := fs.Bool("publish", false, "announce the new observation on the activity topic")
	if err := fs.Parse(args); err != nil {
		return err
	}
	defer a.withActivity(*publish)()

	author := session.NewAuthoring(a.catalog, a.client, a.geocoder, a.publisher, "", a.metrics, a.logger)
	if _, err := author.LoadCatalog(ctx); err != nil {
		return err
	}
	draft := author.Draft()

	if *at == "" {
		now := domain.Now().Truncate(time.Minute)
		draft.SetTimestamp(now)
		fmt.Fprintf(a.out, "no -time given, observed at %s\n", now.Format(time.RFC3339))
	}
	var fieldErrs []error
	for field, value := range map[domain.Field]string{
		domain.FieldCelestialBody: *body,
		domain.FieldTimestamp:     *at,
		domain.FieldOrientation:   *orientation,
		domain.FieldVisibility:    strings.ToUpper(*visibility),
		domain.FieldDescription:   *description,
	} {
		if value == "" {
			continue
		}
		if err := draft.SetField(field, value); err != nil {
			fieldErrs = append(fieldErrs, err)
		}
	}
	if len(fieldErrs) > 0 {
		return errors.Join(fieldErrs...)
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	switch {
	case *place != "":
		res, err := author.SearchPlace(ctx, *place)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "marker placed at %s\n", res.FormattedAddress)
	case set["lat"] && set["lng"]:
		draft.Marker().OnMapInteraction(domain.Coordinate{Lat: *lat, Lng: *lng})
	}

	fmt.Fprintf(a.out, "preview: %s\n", author.PreviewImage())
	rec, err := author.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "observation %d created\n", rec.ID)
	return nil
}

func runShow(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("show")
	id := fs.Int("id", 0, "observation id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("-id is required")
	}
	rec, err := a.client.Observation(ctx, *id)
	if err != nil {
		return err
	}
	printRecord(ctx, a, rec)
	return nil
}

func printRecord(ctx context.Context, a *app, rec domain.Record) {
	place := domain.DescribePlace(ctx, rec.Coordinate, a.geocoder, a.logger)
	status := "current"
	if rec.Expired(a.cfg.ExpiryWindow) {
		status = "expired"
	}
	tw := table(a.out)
	fmt.Fprintf(tw, "id\t%d\n", rec.ID)
	fmt.Fprintf(tw, "body\t%s\n", rec.CelestialBody.Name)
	fmt.Fprintf(tw, "author\t%s\n", rec.Owner.Username)
	fmt.Fprintf(tw, "time\t%s\n", rec.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(tw, "place\t%s\n", place.Label)
	fmt.Fprintf(tw, "orientation\t%g\n", rec.Orientation)
	fmt.Fprintf(tw, "visibility\t%s\n", rec.Visibility)
	fmt.Fprintf(tw, "score\t%d\n", rec.VoteScore)
	fmt.Fprintf(tw, "status\t%s (until %s)\n", status, rec.ExpiresAt(a.cfg.ExpiryWindow).Format(time.RFC3339))
	if rec.Description != "" {
		fmt.Fprintf(tw, "description\t%s\n", rec.Description)
	}
	_ = tw.Flush()
}

func runVote(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("vote")
	id := fs.Int("id", 0, "observation id")
	dir := fs.String("dir", "", "up, down or none to withdraw your vote")
	publish := fs.Bool("publish", false, "announce the vote on the activity topic")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("-id is required")
	}
	defer a.withActivity(*publish)()

	rec, err := a.client.Observation(ctx, *id)
	if err != nil {
		return err
	}
	ballot := session.NewBallot(rec, a.client, a.publisher, "", a.metrics, a.logger)

	if *dir == "none" {
		rec, err = ballot.Retract(ctx)
	} else {
		var d domain.VoteDirection
		d, err = domain.ParseVoteDirection(*dir)
		if err != nil {
			return err
		}
		rec, err = ballot.Cast(ctx, d)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "observation %d score %d\n", rec.ID, ballot.Tally().Display())
	return nil
}

func runAchievements(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("achievements")
	user := fs.String("user", "", "username")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return errors.New("-user is required")
	}
	badges, err := session.NewBadges(a.client, a.metrics, a.logger).Render(ctx, *user)
	if err != nil {
		return err
	}
	printBadges(a.out, badges)
	return nil
}

func printBadges(w io.Writer, badges []session.Badge) {
	if len(badges) == 0 {
		fmt.Fprintln(w, "no achievements yet")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "ACHIEVEMENT\tLEVEL\tIMAGE")
	for _, b := range badges {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Kind, b.Level, b.Image)
	}
	_ = tw.Flush()
}

func runProfile(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("profile")
	user := fs.String("user", "", "username")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return errors.New("-user is required")
	}
	view, err := session.NewProfiles(a.client, a.metrics, a.logger).Profile(ctx, *user)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (karma %d, %d observations)\n", view.User.Username, view.Karma, len(view.Observations))
	if view.Biography != "" {
		fmt.Fprintln(a.out, view.Biography)
	}
	printBadges(a.out, view.Badges)
	return nil
}

func runNearby(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("nearby")
	lat := fs.Float64("lat", 0, "latitude")
	lng := fs.Float64("lng", 0, "longitude")
	place := fs.String("place", "", "search for a place name instead of -lat/-lng")
	all := fs.Bool("all", false, "include expired observations")
	if err := fs.Parse(args); err != nil {
		return err
	}

	point := domain.Coordinate{Lat: *lat, Lng: *lng}
	if *place != "" {
		var marker domain.MarkerPlacement
		if _, err := domain.PlaceMarker(ctx, &marker, *place, a.geocoder); err != nil {
			return err
		}
		point, _ = marker.CurrentPoint()
	}

	records, err := a.client.NearbyObservations(ctx, point)
	if err != nil {
		return err
	}
	records = domain.Nearby(records, point, domain.NearbyRadiusKm)

	tw := table(a.out)
	fmt.Fprintln(tw, "ID\tBODY\tAUTHOR\tDISTANCE\tSCORE\tSTATUS")
	for _, rec := range records {
		expired := rec.Expired(a.cfg.ExpiryWindow)
		if expired && !*all {
			continue
		}
		status := "current"
		if expired {
			status = "expired"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f km\t%d\t%s\n", rec.ID, rec.CelestialBody.Name, rec.Owner.Username,
			domain.DistanceKm(point, rec.Coordinate), rec.VoteScore, status)
	}
	return tw.Flush()
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("register")
	var reg domain.Registration
	fs.StringVar(&reg.Username, "user", "", "username")
	fs.StringVar(&reg.Password, "password", "", "password")
	fs.StringVar(&reg.PasswordConfirmation, "confirm", "", "password again")
	fs.StringVar(&reg.Biography, "bio", "", "short biography")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := reg.Validate(); err != nil {
		return err
	}
	profile, err := a.client.Register(ctx, reg)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "account %s created\n", profile.User.Username)
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login")
	var creds domain.Credentials
	fs.StringVar(&creds.Username, "user", "", "username")
	fs.StringVar(&creds.Password, "password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if creds.Username == "" || creds.Password == "" {
		return errors.New("-user and -password are required")
	}
	token, err := a.client.Login(ctx, creds)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "export API_TOKEN=%s\n", token)
	return nil
}
