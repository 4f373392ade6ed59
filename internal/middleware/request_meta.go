package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/smarttransit/bus-ticketing/internal/services"
	"github.com/smarttransit/bus-ticketing/internal/utils"
)

// DeviceTypeKey holds the parsed device type for the request logger
const DeviceTypeKey = "device_type"

// RequestMeta attaches the client IP and device details to the request context
// so payment audit rows can record them
func RequestMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		userAgent := utils.GetUserAgent(c)
		device := utils.ParseUserAgent(userAgent)

		c.Set(DeviceTypeKey, device.DeviceType)
		ctx := services.WithRequestMeta(c.Request.Context(), services.RequestMeta{
			IPAddress:  utils.GetRealIP(c),
			UserAgent:  userAgent,
			DeviceType: device.DeviceType,
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
