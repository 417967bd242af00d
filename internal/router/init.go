package router

import (
	"github.com/areebaatariq/DiabeVision/internal/application"
	"github.com/areebaatariq/DiabeVision/internal/container"
	"github.com/areebaatariq/DiabeVision/internal/inference"
	pginfra "github.com/areebaatariq/DiabeVision/internal/infrastructure/postgres"
	handlers "github.com/areebaatariq/DiabeVision/internal/interface/http"
	"github.com/areebaatariq/DiabeVision/internal/router/modules"
)

func buildAuthModule() Module {
	repo := pginfra.NewUserRepository(container.GetPGPool())
	svc := application.NewUserService(
		repo,
		container.GetJWT(),
		container.GetRabbitPub(),
		container.GetLogger(),
		container.GetConfig().MailSendEnabled,
	)
	h := handlers.NewAuthHandler(svc, container.GetLogger())
	return modules.NewAuthModule(h, container.GetJWT())
}

func buildAnalysisModule() Module {
	repo := pginfra.NewAnalysisRepository(container.GetPGPool())
	svc := application.NewAnalysisService(
		repo,
		container.GetBlobStore(),
		inference.RandomModel{},
		container.GetLogger(),
		container.GetES(),
		container.GetConfig().ESAnalysesIndex,
	)
	h := handlers.NewAnalysisHandler(svc, container.GetLogger())
	return modules.NewAnalysisModule(h, container.GetJWT())
}

// InitModules initializes all application modules and registers them with the
// router registry. Called once during startup after the container is filled.
func InitModules(r *Registry) {
	r.Add(buildAuthModule())
	r.Add(buildAnalysisModule())
}
