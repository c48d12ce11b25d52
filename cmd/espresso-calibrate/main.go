// Command espresso-calibrate fits Steinhart-Hart coefficients for the basket
// and group thermistors. It listens to the controller's telemetry stream,
// averages the recent raw resistances, and pairs them with three reference
// temperatures typed in by the operator. The result is printed as a config
// snippet.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/espresso-shot/internal/smooth"
	"github.com/sweeney/espresso-shot/internal/telemetry"
	"github.com/sweeney/espresso-shot/internal/thermistor"
)

// defaultWindow is half a second of records at the default sensing rate.
const defaultWindow = 50

func main() {
	port := flag.String("port", "", "Serial port with the telemetry stream (default: first port found)")
	baud := flag.Int("baud", 115200, "Serial baud rate")
	groupOnly := flag.Bool("group-only", false, "Only calibrate the group thermistor")
	window := flag.Int("window", defaultWindow, "Number of records averaged per reading")

	flag.Parse()

	if *port == "" {
		ports, err := telemetry.Ports()
		if err != nil || len(ports) == 0 {
			log.Fatalf("fatal: no serial port given and none found (%v)", err)
		}
		*port = ports[0]
	}

	p, err := telemetry.OpenSerial(*port, *baud)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	defer p.Close()
	log.Printf("listening on %s at %d baud", *port, *baud)

	col := newCollector(*window)
	go func() {
		if err := collect(p, col); err != nil {
			log.Fatalf("fatal: telemetry stream: %v", err)
		}
	}()

	if err := calibrate(os.Stdin, os.Stdout, col.Means, *groupOnly); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// collector keeps a moving window of raw resistances per probe. It is fed by
// the serial reader and read by the prompt loop.
type collector struct {
	mu     sync.Mutex
	window int
	basket *smooth.Buffer
	group  *smooth.Buffer
	n      int
}

func newCollector(window int) *collector {
	return &collector{window: window}
}

// Add records the raw resistances of one telemetry record. The first record
// fills the window.
func (c *collector) Add(r telemetry.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.basket == nil {
		c.basket = smooth.NewBuffer(c.window, r.BasketResistance)
		c.group = smooth.NewBuffer(c.window, r.GroupResistance)
	} else {
		c.basket.Push(r.BasketResistance)
		c.group.Push(r.GroupResistance)
	}
	c.n++
}

// Means returns the windowed average resistances and the number of records
// seen so far.
func (c *collector) Means() (basket, group float64, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.basket == nil {
		return 0, 0, 0
	}
	return float64(c.basket.Average()), float64(c.group.Average()), c.n
}

// collect feeds every record from r into col until the stream ends.
func collect(r io.Reader, col *collector) error {
	tr := telemetry.NewReader(r)
	for {
		rec, err := tr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		col.Add(rec)
	}
}

type coefficientsYAML struct {
	A float64 `yaml:"a"`
	B float64 `yaml:"b"`
	C float64 `yaml:"c"`
}

type snippet struct {
	Thermistors map[string]coefficientsYAML `yaml:"thermistors"`
}

// calibrate prompts for three reference temperatures on in, samples the
// resistances for each, and writes the fitted coefficients to out.
func calibrate(in io.Reader, out io.Writer, means func() (basket, group float64, n int), groupOnly bool) error {
	var basket, group [3]thermistor.Pair
	sc := bufio.NewScanner(in)

	for i := 0; i < 3; {
		fmt.Fprintf(out, "Temperature %d: ", i+1)
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			return fmt.Errorf("input ended after %d of 3 temperatures", i)
		}
		celsius, err := strconv.ParseFloat(strings.TrimSpace(sc.Text()), 64)
		if err != nil {
			fmt.Fprintln(out, "Please enter a number.")
			continue
		}
		b, g, n := means()
		if n == 0 {
			fmt.Fprintln(out, "No telemetry received yet.")
			continue
		}
		basket[i] = thermistor.Pair{Celsius: celsius, Resistance: b}
		group[i] = thermistor.Pair{Celsius: celsius, Resistance: g}
		log.WithFields(log.Fields{"celsius": celsius, "basket": b, "group": g, "records": n}).Debug("calibration point")
		i++
	}

	probes := map[string][3]thermistor.Pair{"group": group}
	if !groupOnly {
		probes["basket"] = basket
	}

	s := snippet{Thermistors: map[string]coefficientsYAML{}}
	for name, pairs := range probes {
		c, err := thermistor.Fit(pairs)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		s.Thermistors[name] = coefficientsYAML{A: float64(c.A), B: float64(c.B), C: float64(c.C)}
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal coefficients: %w", err)
	}
	fmt.Fprintln(out)
	_, err = out.Write(data)
	return err
}
