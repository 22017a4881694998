package main

import (
	"fmt"
	nethttp "net/http"
	"os"
	"strconv"
	"strings"

	"github.com/fiware/idm-consent/config"
	"github.com/fiware/idm-consent/consent"
	"github.com/fiware/idm-consent/gate"
	idmhttp "github.com/fiware/idm-consent/http"
	"github.com/fiware/idm-consent/logging"
	"github.com/fiware/idm-consent/token"
	"github.com/fiware/idm-consent/user"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hellofresh/health-go/v5"
	"github.com/penglongli/gin-metrics/ginmetrics"
	"github.com/rs/cors"
	"github.com/subosito/gotenv"
)

var logger = logging.Log()

/**
* Port to run the server at. Default is 8080.
 */
var serverPort int = 8080

func init() {
	if err := gotenv.Load(); err != nil {
		logger.Debugf("No .env file was loaded. %v", err)
	}

	serverPortEnvVar := os.Getenv("SERVER_PORT")
	if serverPortEnvVar != "" {
		port, err := strconv.Atoi(serverPortEnvVar)
		if err != nil {
			logger.Fatalf("No valid server port was provided: %s.", serverPortEnvVar)
		}
		serverPort = port
	}
}

/**
* Startup method to run the gin-server.
 */
func main() {

	envConfig := config.EnvConfig{}
	signingSecret := envConfig.SigningSecret()
	providerId := envConfig.ProviderId()

	var consentRepo consent.ConsentRepository
	if os.Getenv("MYSQL_HOST") != "" {
		repository := consent.GetMySqlRepository()
		consentRepo = consent.NewSqlRepository(repository)
		if err := idmhttp.Health().Register(health.Config{Name: "mysql", Check: repository.Ping}); err != nil {
			logger.Warnf("Was not able to register the mysql health check. Err: %v", err)
		}
		logger.Infof("Connected to mysql as storage backend.")
	} else {
		logger.Warn("Consent repository is kept in-memory. No persistence will be applied, do NEVER use this for anything but development or testing!")
		consentRepo = consent.NewInmemoryRepo()
	}

	revocationList := consent.NewRevocationList()
	tokenIssuer := token.NewTokenIssuer(signingSecret, providerId)
	tokenValidator := token.NewTokenValidator(signingSecret, providerId)
	authenticationGate := gate.NewAuthenticationGate(tokenValidator, consentRepo, revocationList)

	userRepo := user.NewInmemoryUserRepo(uuid.NewString)
	loginController := user.NewLoginController(userRepo, tokenIssuer)
	userController := user.NewUserController(userRepo)
	consentController := consent.NewConsentController(consentRepo, revocationList)

	consent.ScheduleHistoryTrimming(consentRepo, envConfig.AccessHistoryLimit())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.GinHandlerFunc())
	router.Use(corsHandlerFunc())
	router.Use(authenticationGate.GinHandlerFunc())

	metricsMonitor := ginmetrics.GetMonitor()
	metricsMonitor.SetMetricPath("/metrics")
	metricsMonitor.Use(router)

	router.GET("/health", idmhttp.HealthReq)

	// public surface
	router.POST("/login", loginController.Login)
	router.POST("/users", userController.RegisterUser)

	// everything below requires an authenticated principal
	authenticated := router.Group("", gate.RequireAuthentication())

	authenticated.POST("/consents", consentController.RecordConsent)
	authenticated.GET("/consents", consentController.GetConsents)
	authenticated.GET("/consents/:id", consentController.GetConsentById)
	authenticated.DELETE("/consents/:id", consentController.RevokeConsent)
	authenticated.DELETE("/consents/:id/attributes/:attributeId", consentController.RevokeAttribute)

	authenticated.POST("/contexts", userController.CreateContext)
	authenticated.GET("/contexts", userController.GetContexts)
	authenticated.DELETE("/contexts/:id", userController.DeleteContext)

	authenticated.POST("/attributes", userController.CreateAttribute)
	authenticated.GET("/attributes", userController.GetAttributes)
	authenticated.GET("/attributes/shareable", userController.GetShareableAttributes)
	authenticated.PUT("/attributes/:id", userController.UpdateAttribute)
	authenticated.DELETE("/attributes/:id", userController.DeleteAttribute)

	logger.Infof("Starting router at %v", serverPort)
	router.Run(fmt.Sprintf("0.0.0.0:%v", serverPort))
}

/**
* Cors support for the browser based selection ui.
 */
func corsHandlerFunc() gin.HandlerFunc {
	allowedOrigins := []string{"*"}
	if originsEnvVar := os.Getenv("CORS_ALLOWED_ORIGINS"); originsEnvVar != "" {
		allowedOrigins = strings.Split(originsEnvVar, ",")
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{nethttp.MethodGet, nethttp.MethodPost, nethttp.MethodPut, nethttp.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return func(c *gin.Context) {
		corsHandler.HandlerFunc(c.Writer, c.Request)
		if c.Request.Method == nethttp.MethodOptions {
			c.AbortWithStatus(nethttp.StatusNoContent)
			return
		}
		c.Next()
	}
}
