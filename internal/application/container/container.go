package container

import (
	"fundarb/internal/application/port"
	"fundarb/internal/application/service"
)

// Container 应用服务容器：按需惰性构造，同一实例全局复用
type Container struct {
	backend port.Backend
	cache   port.QueryCache

	opportunityService *service.OpportunityService
	positionService    *service.PositionService
	fundingService     *service.FundingService
	statusService      *service.StatusService
}

func New(backend port.Backend, cache port.QueryCache) *Container {
	return &Container{
		backend: backend,
		cache:   cache,
	}
}

func (c *Container) Backend() port.Backend {
	return c.backend
}

func (c *Container) Cache() port.QueryCache {
	return c.cache
}

func (c *Container) OpportunityService() *service.OpportunityService {
	if c.opportunityService == nil {
		c.opportunityService = service.NewOpportunityService(c.backend, c.cache)
	}
	return c.opportunityService
}

func (c *Container) PositionService() *service.PositionService {
	if c.positionService == nil {
		c.positionService = service.NewPositionService(c.backend, c.cache)
	}
	return c.positionService
}

func (c *Container) FundingService() *service.FundingService {
	if c.fundingService == nil {
		c.fundingService = service.NewFundingService(c.backend, c.cache)
	}
	return c.fundingService
}

func (c *Container) StatusService() *service.StatusService {
	if c.statusService == nil {
		c.statusService = service.NewStatusService(c.backend, c.cache)
	}
	return c.statusService
}

func (c *Container) Close() error {
	return c.cache.Close()
}
