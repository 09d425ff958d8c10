package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RenderFields 描述一次渲染请求，cache_key 与缓存键保持一致便于排查。
func RenderFields(folder, file, format, cacheKey string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"folder":    folder,
		"file":      file,
		"format":    format,
		"cache_key": cacheKey,
		"cache_hit": cacheHit,
	}
}

// UploadFields 描述一次上传请求。
func UploadFields(origin, folder, fileName string, sizeBytes int) logrus.Fields {
	return logrus.Fields{
		"origin":     origin,
		"folder":     folder,
		"file":       fileName,
		"size_bytes": sizeBytes,
	}
}
