package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"misbah-schools/app/client"
)

func main() {
	baseURL := flag.String("server", "http://localhost:8080", "tracking server base URL")
	studentID := flag.String("student", "", "student ID to track")
	markerPath := flag.String("marker", ".tracking-marker.json", "path of the local resume marker")
	flag.Parse()

	if *studentID == "" {
		log.Fatal("-student is required")
	}

	agent := client.New(*baseURL, *studentID, *markerPath)

	resumed, err := agent.Resume()
	if err != nil {
		log.Printf("resume failed: %v", err)
	}
	if resumed {
		log.Println("Resumed previous tracking session")
	}

	stop := make(chan struct{})
	go agent.RunHeartbeats(stop)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	close(stop)
	if err := agent.Stop("manual"); err != nil {
		log.Printf("stop failed: %v", err)
	}
}
