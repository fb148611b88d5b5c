package container

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"whisperbox/config"
	"whisperbox/internal/domain/repository"
	"whisperbox/pkg/helpers"
)

// app-level container to share constructed components across packages.
// Router modules auto-wire themselves from these singletons. The store is
// held behind the UserStore interface: nothing past this point knows which
// backend is active.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	userStore   repository.UserStore
	redisClient *redis.Client
	jwtManager  *helpers.JWTManager
	rabbitPub   *helpers.RabbitPublisher
)

func SetConfig(c *config.Config)              { cfg = c }
func GetConfig() *config.Config               { return cfg }
func SetLogger(l *logrus.Logger)              { logger = l }
func GetLogger() *logrus.Logger               { return logger }
func SetStore(s repository.UserStore)         { userStore = s }
func GetStore() repository.UserStore          { return userStore }
func SetRedis(r *redis.Client)                { redisClient = r }
func GetRedis() *redis.Client                 { return redisClient }
func SetJWT(m *helpers.JWTManager)            { jwtManager = m }
func GetJWT() *helpers.JWTManager             { return jwtManager }
func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
