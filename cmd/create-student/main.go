package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/smkn73/ujian-backend/internal/config"
	"github.com/smkn73/ujian-backend/internal/database"
	"github.com/smkn73/ujian-backend/internal/logger"
	"github.com/smkn73/ujian-backend/internal/model"
	"github.com/smkn73/ujian-backend/internal/repository"
	"github.com/smkn73/ujian-backend/internal/service"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	studentRepo := repository.NewStudentRepository(pool)
	studentService := service.NewStudentService(studentRepo)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Student Account ===")

	// Name
	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	// NISN
	fmt.Print("Enter NISN: ")
	nisn, _ := reader.ReadString('\n')
	nisn = strings.TrimSpace(nisn)
	if nisn == "" {
		fmt.Println("Error: NISN is required")
		return
	}

	// Password
	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// Class ID
	fmt.Print("Enter Class ID: ")
	classIDStr, _ := reader.ReadString('\n')
	classID, err := strconv.Atoi(strings.TrimSpace(classIDStr))
	if err != nil {
		fmt.Println("Error: Class ID must be a number")
		return
	}

	// Sub-class ID
	fmt.Print("Enter Sub-class ID (default 0): ")
	subClassIDStr, _ := reader.ReadString('\n')
	subClassIDStr = strings.TrimSpace(subClassIDStr)
	subClassID := 0
	if subClassIDStr != "" {
		p, err := strconv.Atoi(subClassIDStr)
		if err != nil {
			fmt.Println("Error: Sub-class ID must be a number")
			return
		}
		subClassID = p
	}

	// ─── Logic ─────────────────────────────────────────────────────────

	// Hash Password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	newStudent := &model.Student{
		NISN:         nisn,
		Name:         name,
		PasswordHash: string(hashedPassword),
		ClassID:      classID,
		SubClassID:   subClassID,
	}

	// Create Student
	if err := studentService.Create(ctx, newStudent); err != nil {
		log.Fatal().Err(err).Msg("Failed to create student")
	}

	fmt.Printf("\nSuccess! Student '%s' (NISN %s) created with ID: %d\n", newStudent.Name, newStudent.NISN, newStudent.ID)
}
