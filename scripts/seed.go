package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/bootstrap"
	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/observability"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
	"github.com/hemoglovida/dashboard/backend/pkg/config"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	observability.InitLogger("hemoglovida-seed", cfg.Env)

	ctx := context.Background()

	infra, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize infrastructure")
	}
	defer infra.Close()

	svc, err := bootstrap.NewServices(infra)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize services")
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		_, err := infra.Postgres.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				activities,
				appointments,
				campaigns,
				donors,
				users,
				facilities
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to reset database")
		}
	}

	facility, err := svc.Facility.Update(ctx, entities.FacilityInput{
		Name:  "Hemocentro Regional de Campinas",
		Email: "contato@hemocentro-campinas.org.br",
		Phone: "(19) 3521-8700",
		CNPJ:  "11.222.333/0001-81",
		Address: entities.Address{
			Street:   "Rua Carlos Chagas, 480",
			District: "Cidade Universitária",
			CEP:      "13083-878",
			City:     "Campinas",
			State:    "SP",
			Country:  "Brasil",
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed facility")
	}
	log.Info().Str("facility_id", facility.ID).Msg("seeded facility")

	donorInputs := []entities.DonorInput{
		{Name: "Maria Souza", Email: "maria.souza@example.com", Phone: "(19) 99876-1234", BloodType: "O-", Sex: "feminino", BirthDate: "1988-03-14"},
		{Name: "João Lima", Email: "joao.lima@example.com", BloodType: "A+", Sex: "masculino", BirthDate: "1992-11-02"},
		{Name: "Ana Beatriz Rocha", Email: "ana.rocha@example.com", BloodType: "B-", Sex: "feminino", BirthDate: "2001-07-21"},
		{Name: "Carlos Pereira", Phone: "(19) 98123-4567", BloodType: "AB+", Sex: "masculino", BirthDate: "1979-01-30"},
		{Name: "Fernanda Alves", Email: "fernanda.alves@example.com", BloodType: "O+", Sex: "feminino", BirthDate: "1995-05-09"},
	}

	donors := make([]*entities.Donor, 0, len(donorInputs))
	for _, in := range donorInputs {
		donor, err := svc.Donor.Create(ctx, in)
		if apperrors.Is(err, apperrors.ErrorTypeConflict) {
			log.Info().Str("name", in.Name).Msg("donor already seeded")
			continue
		}
		if err != nil {
			log.Fatal().Err(err).Str("name", in.Name).Msg("failed to seed donor")
		}
		donors = append(donors, donor)
	}

	today := calendar.Today(infra.Clock)
	campaigns := []entities.CampaignInput{
		{
			Name:             "Junho Vermelho",
			Reason:           "Estoques baixos no inverno",
			StartDate:        today.ISO(),
			EndDate:          today.AddDays(30).ISO(),
			Institution:      "Hemocentro Regional de Campinas",
			Location:         "Sede",
			TargetBloodTypes: []string{"O-", "O+"},
		},
		{
			Name:             "Doe na Universidade",
			StartDate:        today.AddDays(10).ISO(),
			EndDate:          today.AddDays(12).ISO(),
			Institution:      "Unicamp",
			Location:         "Ciclo Básico",
			TargetBloodTypes: []string{"A-", "B-", "AB-"},
		},
	}
	for _, in := range campaigns {
		if _, err := svc.Campaign.Create(ctx, in); err != nil {
			log.Fatal().Err(err).Str("name", in.Name).Msg("failed to seed campaign")
		}
	}

	// one appointment per donor spread around today
	for i, donor := range donors {
		donorID := donor.ID
		_, err := svc.Appointments.Create(ctx, entities.NewAppointmentInput{
			PatientName: donor.Name,
			Date:        today.AddDays(i - 2).ISO(),
			Time:        time.Date(0, 1, 1, 8+i, 30*(i%2), 0, 0, time.UTC).Format("15:04"),
			DonorID:     &donorID,
			SelfService: i%2 == 1,
		})
		if err != nil {
			log.Fatal().Err(err).Str("donor_id", donorID).Msg("failed to seed appointment")
		}
	}

	if email := os.Getenv("SEED_ADMIN_EMAIL"); email != "" {
		pass := os.Getenv("SEED_ADMIN_PASSWORD")
		if _, err := svc.Auth.CreateUser(ctx, email, "Administrador", pass, cfg.Facility.ID, true); err != nil {
			log.Error().Err(err).Str("email", email).Msg("failed to seed admin user")
		}
	}

	log.Info().Int("donors", len(donors)).Int("campaigns", len(campaigns)).Msg("seeding completed")
}
