// Package testtypes holds the Go types the package tests serialize.
package testtypes

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/reoring/goxaml"
	"github.com/reoring/goxaml/schema"
)

type Address struct {
	Street string
	City   string
}

type Person struct {
	Name      string `xaml:"Name,name"`
	Age       int
	Email     string `json:"email"`
	Address   *Address
	Friend    *Person
	Tags      []string
	Nicknames []string `xaml:"Nicknames,readonly"`
	Born      time.Time
	OnChange  func()
	secret    string
}

// Secret exposes the unexported field so tests can check it survives.
func (p *Person) Secret() string { return p.secret }

type Color string

type Celsius float64

// Point has constructor arguments and no registered factory.
type Point struct {
	X int `xaml:"X,arg=0"`
	Y int `xaml:"Y,arg=1"`
}

// Money is built through its registered factory NewMoney.
type Money struct {
	Amount   int64  `xaml:"Amount,arg=0"`
	Currency string `xaml:"Currency,arg=1"`
}

func NewMoney(amount int64, currency string) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency required")
	}
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}, nil
}

// Dollars is registered as the "Dollars" factory method of Money.
func Dollars(amount int64) Money { return Money{Amount: amount, Currency: "USD"} }

type Wallet struct {
	Owner   string
	Balance Money
	History []Money
}

type Catalog struct {
	Prices map[string]int
	Kinds  map[string]*schema.Type
	Items  []any
	Extra  any
	Grid   [3]int
}

type TreeNode struct {
	Name     string `xaml:"Name,name"`
	Parent   *TreeNode
	Children []*TreeNode
}

// Shape is shared between two members without a name property.
type Shape struct {
	Sides int
}

type Canvas struct {
	Primary   *Shape
	Secondary *Shape
}

// Theme is ambient: its Accent is visible to markup extensions of
// descendants.
type Theme struct {
	Accent  Color `xaml:"Accent,ambient"`
	Panels  []*Panel
	Regions []*Region
}

// Region is an ambient scope nested in a Theme.
type Region struct {
	Accent Color `xaml:"Accent,ambient"`
	Panels []*Panel
}

type Panel struct {
	Title  string
	Accent Color
}

// AccentLookup evaluates to the nearest ambient Theme accent.
type AccentLookup struct{}

func (AccentLookup) MarkupExtensionReturnType() reflect.Type { return reflect.TypeFor[Color]() }

func (AccentLookup) ProvideValue(ctx context.Context) (any, error) {
	ap, err := goxaml.RequireService[schema.AmbientProvider](ctx)
	if err != nil {
		return nil, err
	}
	sctx, err := goxaml.RequireService[*schema.Context](ctx)
	if err != nil {
		return nil, err
	}
	accent, _ := sctx.TypeFor(reflect.TypeFor[Theme]()).Member("Accent")
	for _, av := range ap.AllAmbientValues(nil, true, nil, accent) {
		return av.Value, nil
	}
	return nil, errors.New("no ambient accent")
}

// AccentTrail joins every ambient Theme and Region accent it can see,
// innermost first. All searches the whole build instead of the open
// objects; StopAtRegion makes Region the ceiling.
type AccentTrail struct {
	All          bool
	StopAtRegion bool
}

func (a AccentTrail) ProvideValue(ctx context.Context) (any, error) {
	ap, err := goxaml.RequireService[schema.AmbientProvider](ctx)
	if err != nil {
		return nil, err
	}
	sctx, err := goxaml.RequireService[*schema.Context](ctx)
	if err != nil {
		return nil, err
	}
	region := sctx.TypeFor(reflect.TypeFor[Region]())
	themeAccent, _ := sctx.TypeFor(reflect.TypeFor[Theme]()).Member("Accent")
	regionAccent, _ := region.Member("Accent")
	var ceiling []*schema.Type
	if a.StopAtRegion {
		ceiling = []*schema.Type{region}
	}
	var trail []string
	for _, av := range ap.AllAmbientValues(ceiling, !a.All, nil, themeAccent, regionAccent) {
		trail = append(trail, string(av.Value.(Color)))
	}
	return Color(strings.Join(trail, "/")), nil
}

// NearestAmbient evaluates to the Go type of the innermost ambient Theme
// or Region; ThemeOnly skips regions.
type NearestAmbient struct {
	ThemeOnly bool
}

func (n NearestAmbient) ProvideValue(ctx context.Context) (any, error) {
	ap, err := goxaml.RequireService[schema.AmbientProvider](ctx)
	if err != nil {
		return nil, err
	}
	sctx, err := goxaml.RequireService[*schema.Context](ctx)
	if err != nil {
		return nil, err
	}
	types := []*schema.Type{sctx.TypeFor(reflect.TypeFor[Theme]())}
	if !n.ThemeOnly {
		types = append(types, sctx.TypeFor(reflect.TypeFor[Region]()))
	}
	v, ok := ap.FirstAmbientValue(types...)
	if !ok {
		return nil, errors.New("no ambient scope")
	}
	return fmt.Sprintf("%T", v), nil
}

// Upper evaluates to its Text in upper case.
type Upper struct {
	Text string `xaml:"Text,arg=0"`
}

func (u Upper) ProvideValue(context.Context) (any, error) {
	if u.Text == "" {
		return nil, errors.New("empty text")
	}
	return strings.ToUpper(u.Text), nil
}

// Counter records its initialization bracket.
type Counter struct {
	Value  int
	Events []string `xaml:"-"`
}

func (c *Counter) BeginInit() { c.Events = append(c.Events, "begin") }
func (c *Counter) EndInit()   { c.Events = append(c.Events, "end") }

// Grid owns the Row attachable.
type Grid struct {
	Cells []*Cell
}

type Cell struct {
	Text string
}

// Holder carries a fixed array and a shape value.
type Holder struct {
	Values [2]string
	Kind   *schema.Type
}

// Labels is a named collection type.
type Labels []string

// Frame holds Border by value, directly and in a slice.
type Frame struct {
	Name   string `xaml:"Name,name"`
	Border Border
	Trims  []Border
	Next   *Frame
}

type Border struct {
	Width int
	Owner *Frame
}

// Badge takes its holder as a constructor argument and has no factory.
type Badge struct {
	Holder *Person `xaml:"Holder,arg=0"`
}

// Ticket is built by NewTicket, which needs the holder up front.
type Ticket struct {
	Holder *Person `xaml:"Holder,arg=0"`
	Seat   int
}

func NewTicket(holder *Person) (*Ticket, error) {
	if holder == nil {
		return nil, errors.New("holder required")
	}
	return &Ticket{Holder: holder}, nil
}

type Desk struct {
	Badge    *Badge
	Ticket   *Ticket
	Occupant *Person
}

// Profile leaves empty members out of serialized output.
type Profile struct {
	Name  string   `xaml:"Name,omitempty"`
	Score int      `xaml:"Score,omitempty"`
	Tags  []string `xaml:"Tags,omitempty"`
	Note  string   `json:"note,omitempty"`
	Level int
}
