package controllers

import (
	"github.com/artisanmart/storefront/app/services"
	"github.com/artisanmart/storefront/pkg/ctx"
	"github.com/artisanmart/storefront/pkg/response"
)

type LowStockController struct {
	lowStock *services.LowStockService
}

func NewLowStockController(lowStock *services.LowStockService) *LowStockController {
	return &LowStockController{lowStock: lowStock}
}

func (lc *LowStockController) Index(c *ctx.Context) {
	p := pageOf(c)
	alerts, total, err := lc.lowStock.List(c.Context(), p)
	if err != nil {
		c.Fail(err)
		return
	}
	threshold, err := lc.lowStock.Threshold(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Low-stock alerts fetched", response.Payload{
		"alerts":     alerts,
		"threshold":  threshold,
		"pagination": paginated(p, total),
	})
}

func (lc *LowStockController) Threshold(c *ctx.Context) {
	var in services.ThresholdInput
	if !c.BindJSON(&in) {
		return
	}
	if err := lc.lowStock.SetThreshold(c.Context(), in.Threshold); err != nil {
		c.Fail(err)
		return
	}
	c.OK("Threshold updated", response.Payload{"threshold": in.Threshold})
}

type ExportController struct {
	exports *services.ExportService
}

func NewExportController(exports *services.ExportService) *ExportController {
	return &ExportController{exports: exports}
}

func (ec *ExportController) Index(c *ctx.Context) {
	list, err := ec.exports.List(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Scheduled exports fetched", response.Payload{"exports": list})
}

func (ec *ExportController) Store(c *ctx.Context) {
	var in services.ScheduleInput
	if !c.BindJSON(&in) {
		return
	}
	sched, err := ec.exports.Create(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created("Scheduled export created", response.Payload{"export": sched})
}

func (ec *ExportController) Update(c *ctx.Context) {
	id, ok := c.ParamID("id")
	if !ok {
		return
	}
	var in services.ScheduleInput
	if !c.BindJSON(&in) {
		return
	}
	sched, err := ec.exports.Update(c.Context(), id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Scheduled export updated", response.Payload{"export": sched})
}

func (ec *ExportController) Destroy(c *ctx.Context) {
	id, ok := c.ParamID("id")
	if !ok {
		return
	}
	if err := ec.exports.Delete(c.Context(), id); err != nil {
		c.Fail(err)
		return
	}
	c.OK("Scheduled export deleted", nil)
}

func (ec *ExportController) Run(c *ctx.Context) {
	id, ok := c.ParamID("id")
	if !ok {
		return
	}
	run, err := ec.exports.RunNow(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created("Export run finished", response.Payload{"run": run})
}

func (ec *ExportController) Runs(c *ctx.Context) {
	id, ok := c.ParamID("id")
	if !ok {
		return
	}
	p := pageOf(c)
	runs, total, err := ec.exports.Runs(c.Context(), id, p)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Export runs fetched", response.Payload{"runs": runs, "pagination": paginated(p, total)})
}

func (ec *ExportController) Retry(c *ctx.Context) {
	id, ok := c.ParamID("runId")
	if !ok {
		return
	}
	run, err := ec.exports.Retry(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created("Export retried", response.Payload{"run": run})
}

type ContactController struct {
	contact *services.ContactService
}

func NewContactController(contact *services.ContactService) *ContactController {
	return &ContactController{contact: contact}
}

func (cc *ContactController) Store(c *ctx.Context) {
	var in services.ContactInput
	if !c.BindJSON(&in) {
		return
	}
	var userID *uint
	if uid := c.UserID(); uid != 0 {
		userID = &uid
	}
	m, err := cc.contact.Submit(c.Context(), userID, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created("Thanks, we will get back to you soon", response.Payload{"contact": m})
}

func (cc *ContactController) Index(c *ctx.Context) {
	p := pageOf(c)
	msgs, total, err := cc.contact.List(c.Context(), p)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Messages fetched", response.Payload{"messages": msgs, "pagination": paginated(p, total)})
}
