package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/echovoice/echovoice/internal/assist"
	"github.com/echovoice/echovoice/internal/config"
	"github.com/echovoice/echovoice/internal/detect"
	"github.com/echovoice/echovoice/internal/escalate"
	"github.com/echovoice/echovoice/internal/geo"
	"github.com/echovoice/echovoice/internal/history"
	"github.com/echovoice/echovoice/internal/llm"
	"github.com/echovoice/echovoice/internal/messaging"
	"github.com/echovoice/echovoice/internal/server"
	"github.com/echovoice/echovoice/internal/speech"
	"github.com/echovoice/echovoice/pkg/types"
)

func main() {
	contactsPath := flag.String("contacts", "", "Path to the emergency contacts YAML file (default: $ECHOVOICE_CONTACTS_PATH)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize the history sink
	sink, err := history.NewSink(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize history storage: %v", err)
	}
	defer sink.Close()

	// Generative suggestion backend; the assistant degrades to the rule-based
	// fallback if this fails.
	generator, err := llm.NewTextGenerator(cfg.LLM)
	if err != nil {
		log.Printf("WARNING: suggestion backend unavailable, using rule-based fallback only: %v", err)
		generator = nil
	}

	speaker, err := speech.NewSpeaker(cfg.Speech)
	if err != nil {
		log.Fatalf("Failed to initialize speech output: %v", err)
	}

	// Twilio is optional; without credentials, escalation skips SMS.
	var messenger messaging.Messenger
	if cfg.Messaging.TwilioAccountSID != "" && cfg.Messaging.TwilioAuthToken != "" {
		messenger = messaging.NewTwilioClient(messaging.TwilioConfig{
			AccountSID: cfg.Messaging.TwilioAccountSID,
			AuthToken:  cfg.Messaging.TwilioAuthToken,
			FromNumber: cfg.Messaging.TwilioFromNumber,
		})
	} else {
		log.Println("WARNING: Twilio not configured, emergency SMS disabled")
	}

	// Emergency contact roster
	path := *contactsPath
	if path == "" {
		path = cfg.User.ContactsPath
	}
	var contacts []types.Contact
	if path != "" {
		contacts, err = escalate.LoadContacts(path)
		if err != nil {
			log.Printf("WARNING: failed to load contacts from %s: %v", path, err)
		} else {
			log.Printf("Loaded %d emergency contacts from %s", len(contacts), path)
		}
	}

	// The location-time detector always runs for the time-of-day signal.
	// Camera-based emotion and presence detection need platform capture
	// sources wired in, and positioning hardware is platform-specific, so
	// the headless build runs time-only with a geocoder ready for builds
	// that supply a geolocator.
	geocoder := geo.NewNominatimClient(geo.NominatimConfig{})
	locationTime := detect.NewLocationTimeDetector(nil, geocoder, cfg.Detect.ClockInterval)

	assistant, err := assist.New(assist.Options{
		Config:       cfg,
		Generator:    generator,
		Speaker:      speaker,
		Sink:         sink,
		Messenger:    messenger,
		Contacts:     contacts,
		LocationTime: locationTime,
	})
	if err != nil {
		log.Fatalf("Failed to initialize assistant: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := assistant.Start(ctx); err != nil {
		log.Fatalf("Failed to start assistant: %v", err)
	}

	addr, _, err := server.Start(ctx, cfg, assistant)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("EchoVoice running at http://%s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")

	if err := assistant.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down assistant: %v", err)
	}

	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}
