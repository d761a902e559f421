package menu

// DefaultListID is the list offered after an unrecognized message.
const DefaultListID = "demo_list"

const greeting = "¡Hola! 👋 Bienvenido al bot de WhatsApp. Te voy a enviar un menú de opciones."

// Default returns the configuration seeded on first run.
func Default() *Tree {
	return &Tree{
		Responses: map[string]Command{
			"hola":     {Type: CommandText, Message: greeting, FollowUp: DefaultListID},
			"hello":    {Type: CommandText, Message: greeting, FollowUp: DefaultListID},
			"hi":       {Type: CommandText, Message: greeting, FollowUp: DefaultListID},
			"menu":     {Type: CommandList, Message: "📋 Este es nuestro menú principal:", FollowUp: DefaultListID},
			"opciones": {Type: CommandList, Message: "📋 Estas son las opciones disponibles:", FollowUp: DefaultListID},
		},
		Lists: map[string]List{
			DefaultListID: {
				Title:       "📋 Menú Principal",
				Description: "Selecciona una opción para continuar:",
				ButtonText:  "Ver opciones",
				Sections: []Section{
					{
						Title: "Servicios",
						Rows: []Row{
							{ID: "info_general", Title: "📍 Información General", Description: "Conoce más sobre nosotros"},
							{ID: "soporte_tecnico", Title: "🔧 Soporte Técnico", Description: "Ayuda técnica especializada"},
							{ID: "consulta_cuenta", Title: "👤 Consulta de Cuenta", Description: "Información de tu cuenta"},
						},
					},
					{
						Title: "Contacto",
						Rows: []Row{
							{ID: "horarios_atencion", Title: "🕐 Horarios de Atención", Description: "Ver horarios disponibles"},
							{ID: "contactar_humano", Title: "👨‍💼 Hablar con Agente", Description: "Conectar con persona real"},
						},
					},
				},
			},
		},
		ListResponses: Replies{
			"info_general": SubmenuReply{
				ReplyBase: ReplyBase{Message: "✅ Información General seleccionada.\n\n🏢 Somos una empresa dedicada a brindar los mejores servicios digitales."},
				Submenu:   "info_submenu",
			},
			"soporte_tecnico": URLReply{
				ReplyBase: ReplyBase{Message: "✅ Soporte Técnico seleccionado.\n\n🔧 Nuestro equipo de soporte técnico está disponible para ayudarte."},
				URL:       "https://example.com/soporte",
				URLText:   "Centro de ayuda",
			},
			"consulta_cuenta": TextReply{ReplyBase{
				Message: "✅ Consulta de Cuenta seleccionada.\n\n👤 Para consultas de cuenta, necesitaríamos verificar tu identidad.\n\nPor favor, proporciona tu número de cuenta o identificación.",
			}},
			"horarios_atencion": TextReply{ReplyBase{
				Message: "✅ Horarios de Atención.\n\n🕐 Nuestros horarios de atención son:\n• Lunes a Viernes: 8:00 AM - 6:00 PM\n• Sábados: 9:00 AM - 2:00 PM\n• Domingos: Cerrado\n\n⏰ Zona horaria: UTC-5",
			}},
			"contactar_humano": ButtonsReply{
				ReplyBase: ReplyBase{Message: "✅ Contacto con Agente Humano.\n\n👨‍💼 ¿Cómo prefieres que te contactemos?"},
				Buttons: []Button{
					{ID: "agente_whatsapp", Title: "💬 Por WhatsApp"},
					{ID: "agente_llamada", Title: "📞 Llamada"},
					{ID: "agente_email", Title: "📧 Email"},
				},
			},
		},
		Submenus: map[string]List{
			"info_submenu": {
				Title:       "📍 Información Detallada",
				Description: "¿Qué te gustaría saber?",
				ButtonText:  "Ver detalles",
				Sections: []Section{
					{
						Title: "Sobre Nosotros",
						Rows: []Row{
							{ID: "historia_empresa", Title: "📜 Historia", Description: "Cómo empezamos"},
							{ID: "ubicacion", Title: "📍 Ubicación", Description: "Dónde encontrarnos"},
						},
					},
				},
			},
		},
		SubmenuResponses: Replies{
			"historia_empresa": TextReply{ReplyBase{
				Message:  "📜 Nacimos en 2015 con la misión de simplificar la atención digital.",
				FollowUp: DefaultListID,
			}},
			"ubicacion": URLReply{
				ReplyBase: ReplyBase{Message: "📍 Estamos en Av. Siempre Viva 742."},
				URL:       "https://maps.example.com/oficina",
				URLText:   "Ver en el mapa",
			},
			"agente_whatsapp": TextReply{ReplyBase{Message: "💬 Un agente te escribirá por este chat en breve."}},
			"agente_llamada":  TextReply{ReplyBase{Message: "📞 Un agente te llamará en los próximos minutos."}},
			"agente_email":    TextReply{ReplyBase{Message: "📧 Escríbenos a soporte@example.com y te responderemos en 24 horas."}},
		},
	}
}
